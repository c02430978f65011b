package notify

import (
	"context"
	"log/slog"

	"github.com/bths-robotics/delphi-watch/app/feed"
)

// Notification is the plain outbound record handed to the presentation
// layer. It carries no platform-specific structure; how it is displayed is
// up to the receiver.
type Notification struct {
	ChannelID string             `json:"channel_id,omitempty"`
	Headline  string             `json:"headline"`
	Post      feed.Post          `json:"post"`
	Preview   string             `json:"preview"`             // plain text, truncated
	Thumbnail string             `json:"thumbnail,omitempty"` // first image URL found in the raw preview
	Matches   []feed.MatchResult `json:"matches,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log. It is always
// registered so triggered posts are visible even without a webhook.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.Info("Post notification",
		"headline", n.Headline,
		"id", n.Post.ID,
		"title", n.Post.Title,
		"author", n.Post.Author,
		"url", n.Post.ThreadURL,
		"matches", len(n.Matches))
	return nil
}
