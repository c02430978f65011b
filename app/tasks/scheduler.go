package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bths-robotics/delphi-watch/app/calendar"
	"github.com/bths-robotics/delphi-watch/app/database"
	"github.com/bths-robotics/delphi-watch/app/feed"
	"github.com/bths-robotics/delphi-watch/app/notify"
	"github.com/bths-robotics/delphi-watch/app/rules"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	forum       *feed.Client
	matcher     *feed.Matcher
	triggers    *rules.Cache
	calendar    *calendar.Calendar
	archive     database.PostRepository
	renderer    *notify.Renderer
	notifiers   []notify.Notifier
	workerCount int
	intervalCh  chan time.Duration
	pollActive  atomic.Bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(forum *feed.Client, matcher *feed.Matcher, triggers *rules.Cache,
	cal *calendar.Calendar, archive database.PostRepository, renderer *notify.Renderer,
	notifiers []notify.Notifier, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		forum:       forum,
		matcher:     matcher,
		triggers:    triggers,
		calendar:    cal,
		archive:     archive,
		renderer:    renderer,
		notifiers:   notifiers,
		workerCount: workerCount,
		intervalCh:  make(chan time.Duration, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		interval := s.triggers.RefreshInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case d := <-s.intervalCh:
				if d != interval {
					interval = d
					ticker.Reset(interval)
					slog.Info("Poll interval updated", "interval", interval.String())
				}
			case <-ticker.C:
				if err := s.EnqueuePoll(); err != nil {
					slog.Debug("Skipping poll tick", "reason", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

// SetInterval changes the poll ticker interval at runtime. Called when the
// configured refresh rate changes through the API.
func (s *Scheduler) SetInterval(d time.Duration) {
	// Keep only the latest pending value.
	select {
	case <-s.intervalCh:
	default:
	}
	select {
	case s.intervalCh <- d:
	default:
	}
}

// EnqueuePoll schedules a single poll of the recent-posts feed. At most one
// poll is in flight at a time; a tick that lands while a poll is still
// running is dropped, not queued.
func (s *Scheduler) EnqueuePoll() error {
	if !s.pollActive.CompareAndSwap(false, true) {
		return fmt.Errorf("poll already in progress")
	}

	task := NewPollPostsTask(s.forum, s.matcher, s.triggers, s.archive, s.renderer, s.notifiers,
		func() { s.pollActive.Store(false) })

	if err := s.enqueueTask(task); err != nil {
		s.pollActive.Store(false)
		return err
	}
	return nil
}

func (s *Scheduler) enqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	refreshTask := NewRefreshCalendarTask(s.calendar)
	if err := s.enqueueTask(refreshTask); err != nil {
		slog.Warn("Failed to enqueue RefreshCalendarTask", "error", err)
	}

	if err := s.EnqueuePoll(); err != nil {
		slog.Warn("Failed to enqueue startup poll", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.enqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
