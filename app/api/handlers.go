package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bths-robotics/delphi-watch/app/calendar"
	"github.com/bths-robotics/delphi-watch/app/database"
	"github.com/bths-robotics/delphi-watch/app/feed"
	"github.com/bths-robotics/delphi-watch/app/rules"
	"github.com/bths-robotics/delphi-watch/app/tasks"
)

const (
	defaultRecentLimit   = 20
	defaultSearchLimit   = 10
	defaultUpcomingLimit = 5
)

func NewHandler(forum *feed.Client, triggers *rules.Cache, cal *calendar.Calendar,
	archive database.PostRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		forum:     forum,
		triggers:  triggers,
		calendar:  cal,
		archive:   archive,
		scheduler: scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if postCount, err := h.archive.GetPostCount(); err == nil {
		health["archived_posts"] = postCount
	}

	triggers := h.triggers.Triggers()
	health["triggers"] = map[string]int{
		"keywords": len(triggers.Keywords),
		"authors":  len(triggers.Authors),
	}

	if refreshedAt := h.calendar.LastRefreshedAt(); !refreshedAt.IsZero() {
		health["calendar_refreshed_at"] = refreshedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

// GetRecentPosts serves the most recently observed posts from the archive.
func (h *Handler) GetRecentPosts(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), defaultRecentLimit)

	posts, err := h.archive.GetRecentPosts(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"total": len(posts),
	})
}

// GetPost fetches a single post live from the forum's single-topic feed.
func (h *Handler) GetPost(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing post ID parameter"})
		return
	}

	post, err := h.forum.FetchOne(c.Request.Context(), id)
	if err != nil {
		slog.Error("Post fetch error", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No information available for this post"})
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// SearchPosts runs a live substring search over the latest-posts feed.
func (h *Handler) SearchPosts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter"})
		return
	}

	scope, err := feed.ParseScope(c.Query("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := parseLimit(c.Query("limit"), defaultSearchLimit)

	posts, err := h.forum.Search(c.Request.Context(), query, limit, scope)
	if err != nil {
		slog.Error("Post search error", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No information available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"scope":   scope,
		"results": posts,
		"total":   len(posts),
	})
}

// GetCycleDay reports the school cycle day for a date, defaulting to today.
func (h *Handler) GetCycleDay(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(calendar.DateFormat, raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected MM/DD/YYYY"})
			return
		}
		date = parsed
	}

	day, ok, err := h.calendar.CycleDayFor(c.Request.Context(), date)
	if err != nil {
		slog.Error("Calendar lookup error", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No cycle day for this date"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":      date.Format(calendar.DateFormat),
		"cycle_day": day,
	})
}

// GetWeekSchedule serves the next school days starting from today.
func (h *Handler) GetWeekSchedule(c *gin.Context) {
	schedule, err := h.calendar.WeekSchedule(c.Request.Context(), time.Now())
	if err != nil {
		slog.Error("Calendar lookup error", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule": schedule,
		"total":    len(schedule),
	})
}

// SearchCalendar searches events by date (MM/DD/YYYY query) or by text.
func (h *Handler) SearchCalendar(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter"})
		return
	}

	events, err := h.calendar.Search(c.Request.Context(), query)
	if err != nil {
		slog.Error("Calendar search error", "query", query, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": events,
		"total":   len(events),
	})
}

// GetEvent looks up a single event by exact title, case-insensitively.
func (h *Handler) GetEvent(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing title parameter"})
		return
	}

	event, err := h.calendar.EventByTitle(c.Request.Context(), title)
	if err != nil {
		slog.Error("Calendar lookup error", "title", title, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// GetUpcomingEvents serves dated events on or after today.
func (h *Handler) GetUpcomingEvents(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), defaultUpcomingLimit)

	events, err := h.calendar.UpcomingEvents(c.Request.Context(), time.Now(), limit)
	if err != nil {
		slog.Error("Calendar lookup error", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  len(events),
	})
}

func (h *Handler) APIGetTriggers(c *gin.Context) {
	triggers := h.triggers.Triggers()

	c.JSON(http.StatusOK, gin.H{
		"channel_id":   h.triggers.ChannelID(),
		"keywords":     triggers.Keywords,
		"authors":      triggers.Authors,
		"refresh_rate": h.triggers.RefreshInterval().String(),
	})
}

func (h *Handler) APIAddTrigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing kind or value"})
		return
	}

	added, err := h.triggers.Add(req.Kind, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !added {
		c.JSON(http.StatusConflict, gin.H{"error": "Trigger already exists"})
		return
	}

	slog.Info("Trigger added", "kind", req.Kind, "value", req.Value)
	c.JSON(http.StatusCreated, gin.H{"kind": req.Kind, "value": req.Value})
}

func (h *Handler) APIRemoveTrigger(c *gin.Context) {
	kind := c.Query("kind")
	value := c.Query("value")
	if kind == "" || value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing kind or value parameter"})
		return
	}

	removed, err := h.triggers.Remove(kind, value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
		return
	}

	slog.Info("Trigger removed", "kind", kind, "value", value)
	c.Status(http.StatusNoContent)
}

func (h *Handler) APISetRefreshRate(c *gin.Context) {
	var req refreshRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing refresh_rate_ms"})
		return
	}

	interval := time.Duration(req.RefreshRateMs) * time.Millisecond
	if err := h.triggers.SetRefreshRate(interval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.scheduler.SetInterval(interval)

	slog.Info("Refresh rate updated", "interval", interval.String())
	c.JSON(http.StatusOK, gin.H{"refresh_rate": interval.String()})
}

func (h *Handler) APITriggerPoll(c *gin.Context) {
	if err := h.scheduler.EnqueuePoll(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "poll scheduled"})
}

func (h *Handler) APIRefreshCalendar(c *gin.Context) {
	if err := h.calendar.Refresh(c.Request.Context()); err != nil {
		slog.Error("Calendar refresh error", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "No calendar information available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refreshed_at": h.calendar.LastRefreshedAt().Format(time.RFC3339),
	})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
