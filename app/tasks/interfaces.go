package tasks

import "time"

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application and the API server to manage
// the polling loop.
// Example usage:
//
//	scheduler := NewScheduler(forum, matcher, triggers, calendar, archive, renderer, notifiers)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueuePoll() error
	SetInterval(d time.Duration)
}
