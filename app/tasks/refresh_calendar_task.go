package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bths-robotics/delphi-watch/app/calendar"
)

// RefreshCalendarTask re-fetches the school calendar feed and swaps in the
// new snapshot.
type RefreshCalendarTask struct {
	Task
	calendar *calendar.Calendar
}

func NewRefreshCalendarTask(cal *calendar.Calendar) *RefreshCalendarTask {
	return &RefreshCalendarTask{
		Task:     NewTask(TaskTypeRefreshCalendar, "calendar"),
		calendar: cal,
	}
}

func (t *RefreshCalendarTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.calendar.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh calendar: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshCalendar",
		"duration", t.GetDuration())

	return nil
}
