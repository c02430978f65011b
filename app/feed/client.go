package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bths-robotics/delphi-watch/app/dedup"
	"github.com/bths-robotics/delphi-watch/app/fetch"
)

// Client reads the forum's syndication feeds. FetchRecent is the only
// operation that touches the dedup store; FetchOne and Search always hit
// the feed fresh.
type Client struct {
	baseURL string
	fetcher *fetch.Client
	parser  *Parser
	store   *dedup.Store
}

func NewClient(baseURL string, fetcher *fetch.Client, store *dedup.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		parser:  NewParser(),
		store:   store,
	}
}

// FetchRecent fetches the latest-posts feed and returns the posts not seen
// in the previous fetch window, in feed order. On success the dedup window
// is replaced wholesale by the IDs of this fetch. Transport failures
// degrade to an empty result and leave the window untouched; a malformed
// feed body propagates as an error.
func (c *Client) FetchRecent(ctx context.Context) ([]Post, error) {
	data, err := c.fetcher.Get(ctx, c.baseURL+"/latest.rss")
	if err != nil {
		var transportErr *fetch.TransportError
		if errors.As(err, &transportErr) {
			slog.Warn("Feed fetch failed, skipping cycle", "url", transportErr.URL, "status", transportErr.Status, "error", transportErr.Err)
			return nil, nil
		}
		return nil, err
	}

	posts, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	newPosts := make([]Post, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
		if !c.store.Known(post.ID) {
			newPosts = append(newPosts, post)
		}
	}

	if err := c.store.Replace(ids); err != nil {
		return nil, fmt.Errorf("failed to update dedup window: %w", err)
	}

	return newPosts, nil
}

// FetchOne fetches the single-topic feed for the given post ID and returns
// its first entry, or nil if the request fails or the feed is empty. The
// dedup window is not touched.
func (c *Client) FetchOne(ctx context.Context, id string) (*Post, error) {
	url := fmt.Sprintf("%s/t/%s.rss", c.baseURL, id)

	data, err := c.fetcher.Get(ctx, url)
	if err != nil {
		var transportErr *fetch.TransportError
		if errors.As(err, &transportErr) {
			slog.Warn("Post fetch failed", "id", id, "status", transportErr.Status, "error", transportErr.Err)
			return nil, nil
		}
		return nil, err
	}

	posts, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}

	post := posts[0]
	post.ID = id
	return &post, nil
}

// Search fetches the latest-posts feed fresh and returns up to limit posts
// whose scoped fields contain query as a case-insensitive substring, in
// feed order. The dedup window is not touched.
func (c *Client) Search(ctx context.Context, query string, limit int, scope SearchScope) ([]Post, error) {
	data, err := c.fetcher.Get(ctx, c.baseURL+"/latest.rss")
	if err != nil {
		var transportErr *fetch.TransportError
		if errors.As(err, &transportErr) {
			slog.Warn("Search fetch failed", "query", query, "status", transportErr.Status, "error", transportErr.Err)
			return nil, nil
		}
		return nil, err
	}

	posts, err := c.parser.Run(data)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)

	var results []Post
	for _, post := range posts {
		if matchesScope(post, queryLower, scope) {
			results = append(results, post)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

func matchesScope(post Post, queryLower string, scope SearchScope) bool {
	if scope == ScopeAll || scope == ScopeTitle {
		if strings.Contains(strings.ToLower(post.Title), queryLower) {
			return true
		}
	}
	if scope == ScopeAll || scope == ScopePreview {
		if strings.Contains(strings.ToLower(post.Preview), queryLower) {
			return true
		}
	}
	if scope == ScopeAll || scope == ScopeAuthor {
		if strings.Contains(strings.ToLower(post.Author), queryLower) {
			return true
		}
	}
	return false
}
