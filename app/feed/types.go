package feed

import (
	"fmt"
	"time"
)

// Post is a single forum post as seen in the syndication feed. Posts are
// immutable once constructed. Preview carries the raw feed markup (it may
// embed <img> tags and other HTML); sanitization is the caller's concern.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Preview     string    `json:"preview"`
	ThreadURL   string    `json:"thread_url"`
	Published   string    `json:"published"` // raw feed value
	PublishedAt time.Time `json:"published_at"`
}

// TriggerRule is a user-configured notification filter. A rule may carry
// both an author set and a keyword set; the two forms are evaluated
// independently, case-insensitively.
type TriggerRule struct {
	Keywords []string `json:"keywords"`
	Authors  []string `json:"authors"`
}

type MatchType string

const (
	MatchTypeKeyword MatchType = "keyword"
	MatchTypeAuthor  MatchType = "author"
)

// MatchResult records which rule fired for a post and the literal strings
// that triggered it, in rule-declaration order.
type MatchResult struct {
	Rule    TriggerRule `json:"rule"`
	Type    MatchType   `json:"type"`
	Matches []string    `json:"matches"`
}

// SearchScope selects which post fields a search query is matched against.
type SearchScope string

const (
	ScopeTitle   SearchScope = "title"
	ScopePreview SearchScope = "preview"
	ScopeAuthor  SearchScope = "author"
	ScopeAll     SearchScope = "all"
)

func ParseScope(s string) (SearchScope, error) {
	switch SearchScope(s) {
	case ScopeTitle, ScopePreview, ScopeAuthor, ScopeAll:
		return SearchScope(s), nil
	case "":
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("invalid search scope: %s", s)
	}
}
