package api

import (
	"github.com/bths-robotics/delphi-watch/app/calendar"
	"github.com/bths-robotics/delphi-watch/app/database"
	"github.com/bths-robotics/delphi-watch/app/feed"
	"github.com/bths-robotics/delphi-watch/app/rules"
	"github.com/bths-robotics/delphi-watch/app/tasks"
)

type Handler struct {
	forum     *feed.Client
	triggers  *rules.Cache
	calendar  *calendar.Calendar
	archive   database.PostRepository
	scheduler tasks.TaskSchedulerInterface
}

type triggerRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type refreshRateRequest struct {
	RefreshRateMs int `json:"refresh_rate_ms" binding:"required"`
}
