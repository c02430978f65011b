package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store persists the set of post IDs present in the most recently fetched
// feed window. The file holds a single JSON array of ID strings and is
// rewritten wholesale after every successful fetch, so IDs that scroll off
// the feed window are forgotten. Known limitation: a post that re-enters
// the window later (e.g. after an edit bumps it) will be reported again.
type Store struct {
	path string
	mu   sync.RWMutex
	ids  map[string]struct{}
}

// NewStore loads the persisted ID window from path, creating an empty file
// if none exists yet.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.write(nil); err != nil {
			return nil, fmt.Errorf("failed to initialize persist file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persist file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse persist file: %w", err)
	}

	for _, id := range ids {
		s.ids[id] = struct{}{}
	}

	return s, nil
}

// Known reports whether id was present in the last persisted feed window.
func (s *Store) Known(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}

// Replace swaps the window for the given IDs and rewrites the persist file.
// The previous window is kept if the write fails.
func (s *Store) Replace(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ids); err != nil {
		return fmt.Errorf("failed to persist IDs: %w", err)
	}

	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}

	return nil
}

// Size returns the number of IDs in the current window.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *Store) write(ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}
