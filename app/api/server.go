package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	r.GET("/posts/recent", handler.GetRecentPosts)
	r.GET("/posts/search", handler.SearchPosts)
	r.GET("/posts/:id", handler.GetPost)

	r.GET("/calendar/cycle-day", handler.GetCycleDay)
	r.GET("/calendar/week", handler.GetWeekSchedule)
	r.GET("/calendar/search", handler.SearchCalendar)
	r.GET("/calendar/event", handler.GetEvent)
	r.GET("/calendar/upcoming", handler.GetUpcomingEvents)

	// Mutating endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/triggers", handler.APIGetTriggers)
			api.POST("/triggers", handler.APIAddTrigger)
			api.DELETE("/triggers", handler.APIRemoveTrigger)
			api.POST("/refresh-rate", handler.APISetRefreshRate)
			api.POST("/poll", handler.APITriggerPoll)
			api.POST("/calendar/refresh", handler.APIRefreshCalendar)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health":          "/health",
			"recent posts":    "/posts/recent",
			"post":            "/posts/<id>",
			"post search":     "/posts/search?q=<query>&scope=<title|preview|author|all>&limit=<n>",
			"cycle day":       "/calendar/cycle-day?date=<MM/DD/YYYY>",
			"week schedule":   "/calendar/week",
			"calendar search": "/calendar/search?q=<query or MM/DD/YYYY>",
			"calendar event":  "/calendar/event?title=<title>",
			"upcoming events": "/calendar/upcoming?limit=<n>",
		}

		if apiAccessKey != "" {
			endpoints["triggers"] = "/api/triggers (GET/POST/DELETE, requires X-API-Key header)"
			endpoints["refresh rate"] = "/api/refresh-rate (POST, requires X-API-Key header)"
			endpoints["poll"] = "/api/poll (POST, requires X-API-Key header)"
			endpoints["calendar refresh"] = "/api/calendar/refresh (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Delphi Watch",
			"description": "Chief Delphi forum watcher with trigger notifications and school calendar lookups",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
