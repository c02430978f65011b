package database

import (
	"time"
)

// ArchivedPost is one observed forum post in the archive. The archive is
// observability over the poll pipeline; the dedup contract itself lives in
// the persisted ID window, not here.
type ArchivedPost struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Preview     string     `json:"preview"`
	ThreadURL   string     `json:"thread_url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Triggered   bool       `json:"triggered"`
	MatchedOn   string     `json:"matched_on,omitempty"` // comma-joined literals that fired
	FirstSeenAt time.Time  `json:"first_seen_at"`
}
