package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/bths-robotics/delphi-watch/app/feed"
)

const (
	KindKeyword = "keyword"
	KindAuthor  = "author"
)

// MinRefreshRate is the lowest poll interval a config may request.
const MinRefreshRate = 5 * time.Second

const defaultRefreshRateMs = 15000

// Config mirrors the on-disk JSON trigger configuration.
type Config struct {
	ChannelID string   `json:"channel_id"`
	Triggers  Triggers `json:"triggers"`
}

type Triggers struct {
	Keywords    []string `json:"keywords"`
	Authors     []string `json:"authors"`
	RefreshRate int      `json:"refresh_rate"` // milliseconds
}

// Cache owns the trigger configuration file. Matching itself stays pure:
// consumers take a rules snapshot per call and never hold a reference into
// the cached config.
type Cache struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

// NewCache loads the configuration from path, writing a default config if
// the file does not exist yet.
func NewCache(path string) (*Cache, error) {
	c := &Cache{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c.cfg = Config{Triggers: Triggers{
			Keywords:    []string{},
			Authors:     []string{},
			RefreshRate: defaultRefreshRateMs,
		}}
		if err := c.save(); err != nil {
			return nil, fmt.Errorf("failed to initialize config file: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &c.cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if c.cfg.Triggers.RefreshRate <= 0 {
		c.cfg.Triggers.RefreshRate = defaultRefreshRateMs
	}

	return c, nil
}

// Snapshot returns the configured triggers as a rules slice for the
// matcher. The slices are copies; mutating them does not touch the config.
func (c *Cache) Snapshot() []feed.TriggerRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.cfg.Triggers.Keywords) == 0 && len(c.cfg.Triggers.Authors) == 0 {
		return nil
	}

	return []feed.TriggerRule{{
		Keywords: slices.Clone(c.cfg.Triggers.Keywords),
		Authors:  slices.Clone(c.cfg.Triggers.Authors),
	}}
}

func (c *Cache) Triggers() Triggers {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t := c.cfg.Triggers
	t.Keywords = slices.Clone(t.Keywords)
	t.Authors = slices.Clone(t.Authors)
	return t
}

func (c *Cache) ChannelID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.ChannelID
}

// RefreshInterval returns the configured poll interval, clamped to
// MinRefreshRate.
func (c *Cache) RefreshInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	interval := time.Duration(c.cfg.Triggers.RefreshRate) * time.Millisecond
	if interval < MinRefreshRate {
		return MinRefreshRate
	}
	return interval
}

// Add appends a keyword or author trigger and rewrites the config file.
// Returns false if the value is already present.
func (c *Cache) Add(kind, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.listFor(kind)
	if err != nil {
		return false, err
	}
	if slices.Contains(*list, value) {
		return false, nil
	}

	*list = append(*list, value)
	if err := c.save(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a keyword or author trigger and rewrites the config file.
// Returns false if the value is not present.
func (c *Cache) Remove(kind, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.listFor(kind)
	if err != nil {
		return false, err
	}

	i := slices.Index(*list, value)
	if i < 0 {
		return false, nil
	}

	*list = slices.Delete(*list, i, i+1)
	if err := c.save(); err != nil {
		return false, err
	}
	return true, nil
}

// SetRefreshRate updates the poll interval and rewrites the config file.
func (c *Cache) SetRefreshRate(interval time.Duration) error {
	if interval < MinRefreshRate {
		return fmt.Errorf("refresh rate must be at least %s", MinRefreshRate)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg.Triggers.RefreshRate = int(interval / time.Millisecond)
	return c.save()
}

func (c *Cache) listFor(kind string) (*[]string, error) {
	switch kind {
	case KindKeyword:
		return &c.cfg.Triggers.Keywords, nil
	case KindAuthor:
		return &c.cfg.Triggers.Authors, nil
	default:
		return nil, fmt.Errorf("invalid trigger kind: %s", kind)
	}
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.cfg, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}
