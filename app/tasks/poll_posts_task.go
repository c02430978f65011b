package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bths-robotics/delphi-watch/app/database"
	"github.com/bths-robotics/delphi-watch/app/feed"
	"github.com/bths-robotics/delphi-watch/app/notify"
	"github.com/bths-robotics/delphi-watch/app/rules"
)

// PollPostsTask fetches the recent-posts feed once, evaluates the new
// posts against the configured triggers, archives them and delivers
// notifications. Poll tasks are never retried: a failed poll is covered by
// the next tick, and retrying would let polls overlap.
type PollPostsTask struct {
	Task
	forum     *feed.Client
	matcher   *feed.Matcher
	triggers  *rules.Cache
	archive   database.PostRepository
	renderer  *notify.Renderer
	notifiers []notify.Notifier
	release   func()
}

func NewPollPostsTask(forum *feed.Client, matcher *feed.Matcher, triggers *rules.Cache,
	archive database.PostRepository, renderer *notify.Renderer, notifiers []notify.Notifier,
	release func()) *PollPostsTask {
	task := NewTask(TaskTypePollPosts, "forum")
	task.MaxRetries = 0

	return &PollPostsTask{
		Task:      task,
		forum:     forum,
		matcher:   matcher,
		triggers:  triggers,
		archive:   archive,
		renderer:  renderer,
		notifiers: notifiers,
		release:   release,
	}
}

func (t *PollPostsTask) Execute(ctx context.Context) error {
	if t.release != nil {
		defer t.release()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	newPosts, err := t.forum.FetchRecent(ctx)
	if err != nil {
		return fmt.Errorf("failed to poll recent posts: %w", err)
	}

	triggerRules := t.triggers.Snapshot()
	channelID := t.triggers.ChannelID()

	notifiedCount := 0
	for _, post := range newPosts {
		matches := t.matcher.Run(post, triggerRules)

		// With no triggers configured every new post notifies.
		triggered := len(matches) > 0 || len(triggerRules) == 0

		if err := t.archivePost(post, triggered, matches); err != nil {
			slog.Warn("Failed to archive post", "id", post.ID, "error", err)
		}

		if !triggered {
			continue
		}

		notification := t.renderer.Run(post, matches, channelID)
		for _, notifier := range t.notifiers {
			if err := notifier.Notify(ctx, notification); err != nil {
				slog.Warn("Failed to deliver notification", "id", post.ID, "error", err)
			}
		}
		notifiedCount++
	}

	slog.Info("Task completed",
		"type", "PollPosts",
		"duration", t.GetDuration(),
		"new", len(newPosts),
		"notified", notifiedCount)

	return nil
}

func (t *PollPostsTask) archivePost(post feed.Post, triggered bool, matches []feed.MatchResult) error {
	var matchedOn []string
	for _, match := range matches {
		matchedOn = append(matchedOn, match.Matches...)
	}

	archived := database.ArchivedPost{
		ID:        post.ID,
		Title:     post.Title,
		Author:    post.Author,
		Preview:   post.Preview,
		ThreadURL: post.ThreadURL,
		Triggered: triggered,
		MatchedOn: strings.Join(matchedOn, ","),
	}
	if !post.PublishedAt.IsZero() {
		publishedAt := post.PublishedAt
		archived.PublishedAt = &publishedAt
	}

	return t.archive.UpsertPost(archived)
}
