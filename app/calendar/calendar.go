package calendar

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bths-robotics/delphi-watch/app/fetch"
)

// DateFormat is the date layout used in calendar feed descriptions and in
// date-mode search queries.
const DateFormat = "01/02/2006"

const weekScheduleDays = 5

// Calendar indexes the school calendar feed into a sorted event list and a
// date to cycle-day lookup. The whole index is rebuilt on every refresh and
// swapped in as one snapshot, so readers never observe a half-built state.
// Transport and feed-level parse failures propagate to the caller; a
// malformed individual item only loses the fields that failed to derive.
type Calendar struct {
	url     string
	fetcher *fetch.Client
	parser  *gofeed.Parser

	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	events    []Event
	cycleDays map[string]int
	fetchedAt time.Time
}

func New(url string, fetcher *fetch.Client) *Calendar {
	return &Calendar{
		url:     url,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
	}
}

// Refresh fetches the calendar feed and replaces the index.
func (c *Calendar) Refresh(ctx context.Context) error {
	data, err := c.fetcher.Get(ctx, c.url)
	if err != nil {
		return err
	}

	snap, err := c.parse(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	slog.Info("Calendar refreshed", "events", len(snap.events), "cycle_days", len(snap.cycleDays))
	return nil
}

// snapshotOrRefresh returns the current snapshot, fetching the feed first
// if no events are loaded yet.
func (c *Calendar) snapshotOrRefresh(ctx context.Context) (*snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap != nil && len(snap.events) > 0 {
		return snap, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, nil
}

func (c *Calendar) parse(data []byte) (*snapshot, error) {
	parsed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar feed: %w", err)
	}

	snap := &snapshot{
		cycleDays: make(map[string]int),
		fetchedAt: time.Now(),
	}

	for _, item := range parsed.Items {
		event := Event{
			Title:       item.Title,
			Description: item.Description,
			PubDate:     item.Published,
			Link:        item.Link,
		}

		event.Date = parseEventDate(item.Description)
		event.CycleDay = parseCycleDay(item.Title)

		if event.Date != nil && event.CycleDay != nil {
			snap.cycleDays[dateKey(*event.Date)] = *event.CycleDay
		}

		snap.events = append(snap.events, event)
	}

	// Ascending by date, dateless events last.
	sort.SliceStable(snap.events, func(i, j int) bool {
		a, b := snap.events[i].Date, snap.events[j].Date
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})

	return snap, nil
}

// parseEventDate derives the event date from the first line of the item
// description. Returns nil if the line is not an MM/DD/YYYY date.
func parseEventDate(description string) *time.Time {
	line, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	date, err := time.ParseInLocation(DateFormat, strings.TrimSpace(line), time.Local)
	if err != nil {
		return nil
	}
	return &date
}

// parseCycleDay derives the cycle day from the integer prefix of the item
// title before the first dash. Returns nil if the prefix is not numeric.
func parseCycleDay(title string) *int {
	prefix, _, _ := strings.Cut(title, "-")
	day, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return nil
	}
	return &day
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// CycleDayFor looks up the cycle day for the given date, ignoring the time
// of day. The second return reports whether the date has a cycle day.
func (c *Calendar) CycleDayFor(ctx context.Context, date time.Time) (int, bool, error) {
	snap, err := c.snapshotOrRefresh(ctx)
	if err != nil {
		return 0, false, err
	}

	day, ok := snap.cycleDays[dateKey(date)]
	return day, ok, nil
}

// WeekSchedule returns up to five upcoming entries, scanning the sorted
// events forward from the first event dated on or after now. Events
// without a date never qualify.
func (c *Calendar) WeekSchedule(ctx context.Context, now time.Time) ([]DayEntry, error) {
	snap, err := c.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var schedule []DayEntry
	for _, event := range snap.events {
		if event.Date == nil || event.Date.Before(today) {
			continue
		}

		schedule = append(schedule, DayEntry{
			Date:        *event.Date,
			DayName:     event.Date.Weekday().String(),
			CycleDay:    event.CycleDay,
			Title:       event.Title,
			Description: event.Description,
		})

		if len(schedule) >= weekScheduleDays {
			break
		}
	}

	return schedule, nil
}

// Search returns matching events. A query that parses as MM/DD/YYYY
// selects all events on that exact date and ignores text matching
// entirely; any other query is a case-insensitive substring match over
// title and description.
func (c *Calendar) Search(ctx context.Context, query string) ([]Event, error) {
	snap, err := c.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	if queryDate, err := time.ParseInLocation(DateFormat, query, time.Local); err == nil {
		var results []Event
		for _, event := range snap.events {
			if event.Date != nil && dateKey(*event.Date) == dateKey(queryDate) {
				results = append(results, event)
			}
		}
		return results, nil
	}

	queryLower := strings.ToLower(query)
	var results []Event
	for _, event := range snap.events {
		if strings.Contains(strings.ToLower(event.Title), queryLower) ||
			strings.Contains(strings.ToLower(event.Description), queryLower) {
			results = append(results, event)
		}
	}
	return results, nil
}

// EventByTitle returns the first event in sorted order whose title equals
// the given title case-insensitively, or nil.
func (c *Calendar) EventByTitle(ctx context.Context, title string) (*Event, error) {
	snap, err := c.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	for _, event := range snap.events {
		if strings.EqualFold(event.Title, title) {
			return &event, nil
		}
	}
	return nil, nil
}

// UpcomingEvents returns up to limit dated events on or after now.
func (c *Calendar) UpcomingEvents(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	snap, err := c.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var upcoming []Event
	for _, event := range snap.events {
		if event.Date == nil || event.Date.Before(today) {
			continue
		}
		upcoming = append(upcoming, event)
		if limit > 0 && len(upcoming) >= limit {
			break
		}
	}
	return upcoming, nil
}

// LastRefreshedAt returns when the current snapshot was built, or zero if
// nothing is loaded yet.
func (c *Calendar) LastRefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snap == nil {
		return time.Time{}
	}
	return c.snap.fetchedAt
}
