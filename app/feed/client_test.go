package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bths-robotics/delphi-watch/app/dedup"
	"github.com/bths-robotics/delphi-watch/app/fetch"
)

func feedWithIDs(ids ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Latest topics</title>
    <link>https://example.com/latest</link>
    <description>Latest topics</description>`
	for _, id := range ids {
		body += fmt.Sprintf(`
    <item>
      <title>Topic %s</title>
      <dc:creator>Author %s</dc:creator>
      <description>Preview for %s</description>
      <link>https://example.com/t/topic-%s/%s</link>
      <guid isPermaLink="false">example.com-topic-%s</guid>
    </item>`, id, id, id, id, id, id)
	}
	return body + `
  </channel>
</rss>`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *dedup.Store) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := dedup.NewStore(filepath.Join(t.TempDir(), "persist.json"))
	if err != nil {
		t.Fatalf("Failed to create dedup store: %v", err)
	}

	fetcher := fetch.NewClient(server.Client(), "test-agent", 5*time.Second)
	return NewClient(server.URL, fetcher, store), store
}

func TestFetchRecentFirstWindow(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest.rss" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, feedWithIDs("1", "2", "3"))
	})

	posts, err := client.FetchRecent(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// No overlap with prior state: every entry is new, in feed order.
	if len(posts) != 3 {
		t.Fatalf("Expected 3 posts, got: %d", len(posts))
	}
	for i, want := range []string{"1", "2", "3"} {
		if posts[i].ID != want {
			t.Errorf("Expected post %d to have ID '%s', got '%s'", i, want, posts[i].ID)
		}
	}
	if store.Size() != 3 {
		t.Errorf("Expected dedup window of 3, got %d", store.Size())
	}
}

func TestFetchRecentIdenticalWindow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedWithIDs("1", "2"))
	})

	if _, err := client.FetchRecent(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	posts, err := client.FetchRecent(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected no new posts on identical refetch, got: %d", len(posts))
	}
}

func TestFetchRecentWindowReplacement(t *testing.T) {
	windows := [][]string{
		{"1", "2", "3"},
		{"3", "4"},
		{"1", "5"}, // "1" scrolled off in the previous window, so it is re-reported
	}
	calls := 0
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedWithIDs(windows[calls]...))
		calls++
	})

	ctx := context.Background()
	if _, err := client.FetchRecent(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	posts, err := client.FetchRecent(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "4" {
		t.Fatalf("Expected only post '4' to be new, got: %v", posts)
	}
	if store.Known("1") {
		t.Error("Expected '1' to have scrolled off the window")
	}

	posts, err = client.FetchRecent(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected re-reported '1' and new '5', got: %v", posts)
	}
}

func TestFetchRecentTransportFailure(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedWithIDs("1", "2"))
	})

	if _, err := client.FetchRecent(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	failing, failingStore := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	posts, err := failing.FetchRecent(context.Background())
	if err != nil {
		t.Fatalf("Expected degraded empty result, got error: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected no posts on transport failure, got: %d", len(posts))
	}
	if failingStore.Size() != 0 {
		t.Errorf("Expected dedup window untouched on failure, got size %d", failingStore.Size())
	}
	if store.Size() != 2 {
		t.Errorf("Expected first client's window intact, got %d", store.Size())
	}
}

func TestFetchRecentMalformedFeed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not a feed")
	})

	if _, err := client.FetchRecent(context.Background()); err == nil {
		t.Error("Expected parse error for malformed feed")
	}
}

func TestFetchOne(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/t/481234.rss" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, feedWithIDs("481234"))
	})

	post, err := client.FetchOne(context.Background(), "481234")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if post == nil {
		t.Fatal("Expected a post, got nil")
	}
	if post.ID != "481234" {
		t.Errorf("Expected ID '481234', got '%s'", post.ID)
	}
	if store.Size() != 0 {
		t.Error("FetchOne must not touch the dedup window")
	}
}

func TestFetchOneEmptyFeed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedWithIDs())
	})

	post, err := client.FetchOne(context.Background(), "99")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if post != nil {
		t.Errorf("Expected nil for empty feed, got: %v", post)
	}
}

func TestFetchOneNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	post, err := client.FetchOne(context.Background(), "99")
	if err != nil {
		t.Fatalf("Expected degraded nil result, got error: %v", err)
	}
	if post != nil {
		t.Errorf("Expected nil on HTTP failure, got: %v", post)
	}
}

func TestSearchScopes(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedWithIDs("10", "11", "12"))
	})
	ctx := context.Background()

	// Title scope: "topic 11" matches exactly one entry.
	posts, err := client.Search(ctx, "Topic 11", 10, ScopeTitle)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "11" {
		t.Fatalf("Expected only post '11', got: %v", posts)
	}

	// Author scope is case-insensitive substring.
	posts, err = client.Search(ctx, "author 12", 10, ScopeAuthor)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "12" {
		t.Fatalf("Expected only post '12', got: %v", posts)
	}

	// All scope with a common substring hits everything, limit truncates
	// in feed order.
	posts, err = client.Search(ctx, "topic", 2, ScopeAll)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "10" || posts[1].ID != "11" {
		t.Fatalf("Expected posts '10' and '11', got: %v", posts)
	}

	if store.Size() != 0 {
		t.Error("Search must not touch the dedup window")
	}
}

func TestParseScope(t *testing.T) {
	if _, err := ParseScope("bogus"); err == nil {
		t.Error("Expected error for invalid scope")
	}
	scope, err := ParseScope("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if scope != ScopeAll {
		t.Errorf("Expected default scope 'all', got '%s'", scope)
	}
}
