package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bths-robotics/delphi-watch/app/api"
	"github.com/bths-robotics/delphi-watch/app/calendar"
	"github.com/bths-robotics/delphi-watch/app/cfg"
	"github.com/bths-robotics/delphi-watch/app/database"
	"github.com/bths-robotics/delphi-watch/app/dedup"
	"github.com/bths-robotics/delphi-watch/app/feed"
	"github.com/bths-robotics/delphi-watch/app/fetch"
	"github.com/bths-robotics/delphi-watch/app/notify"
	"github.com/bths-robotics/delphi-watch/app/rules"
	"github.com/bths-robotics/delphi-watch/app/tasks"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Delphi Watch", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	store, err := dedup.NewStore(appCfg.PersistFile)
	if err != nil {
		slog.Error("Failed to load dedup store", "path", appCfg.PersistFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Dedup store loaded", "path", appCfg.PersistFile, "known_ids", store.Size())

	triggers, err := rules.NewCache(appCfg.ConfigFile)
	if err != nil {
		slog.Error("Failed to load trigger configuration", "path", appCfg.ConfigFile, "error", err)
		os.Exit(1)
	}

	httpClient := fetch.NewHTTPClient()
	fetcher := fetch.NewClient(httpClient, appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)

	forum := feed.NewClient(appCfg.ForumURL, fetcher, store)
	cal := calendar.New(appCfg.CalendarURL, fetcher)
	archive := database.NewPostRepository(db)

	notifiers := []notify.Notifier{notify.NewLogNotifier()}
	if appCfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(appCfg.WebhookURL, httpClient))
		slog.Info("Webhook notifications enabled")
	}

	scheduler := tasks.NewScheduler(forum, feed.NewMatcher(), triggers, cal, archive,
		notify.NewRenderer(), notifiers, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "poll_interval", triggers.RefreshInterval().String())

	apiHandler := api.NewHandler(forum, triggers, cal, archive, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
