package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bths-robotics/delphi-watch/app/fetch"
)

const calendarFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>BTHS Events</title>
    <link>https://www.bths.edu</link>
    <description>School calendar</description>
    <item>
      <title>5 - Half Day</title>
      <description>03/14/2025
Spring assembly</description>
      <pubDate>Mon, 10 Mar 2025 00:00:00 GMT</pubDate>
      <link>https://www.bths.edu/events/5</link>
    </item>
    <item>
      <title>Spring Break</title>
      <description>03/17/2025
No school all week</description>
      <pubDate>Mon, 10 Mar 2025 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title>6 - Regular Day</title>
      <description>03/13/2025
Normal schedule</description>
      <pubDate>Mon, 10 Mar 2025 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title>PTA Meeting</title>
      <description>Details to be announced</description>
      <pubDate>Mon, 10 Mar 2025 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newTestCalendar(t *testing.T, body string) *Calendar {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	fetcher := fetch.NewClient(server.Client(), "test-agent", 5*time.Second)
	return New(server.URL, fetcher)
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(DateFormat, value, time.Local)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", value, err)
	}
	return d
}

func TestParseDerivations(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)
	snap, err := cal.snapshotOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(snap.events) != 4 {
		t.Fatalf("Expected 4 events, got: %d", len(snap.events))
	}

	// Events are sorted ascending by date with dateless events last.
	var titles []string
	for _, event := range snap.events {
		titles = append(titles, event.Title)
	}
	want := []string{"6 - Regular Day", "5 - Half Day", "Spring Break", "PTA Meeting"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("Sorted titles mismatch (-want +got):\n%s", diff)
	}

	// "Spring Break" has a date but no numeric title prefix.
	springBreak := snap.events[2]
	if springBreak.Date == nil {
		t.Error("Expected Spring Break to carry a date")
	}
	if springBreak.CycleDay != nil {
		t.Errorf("Expected no cycle day for Spring Break, got: %d", *springBreak.CycleDay)
	}

	// "PTA Meeting" has neither derivation; both stay absent, no error.
	pta := snap.events[3]
	if pta.Date != nil || pta.CycleDay != nil {
		t.Error("Expected PTA Meeting to have no derived fields")
	}
}

func TestCycleDayRoundTrip(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	day, ok, err := cal.CycleDayFor(context.Background(), date(t, "03/14/2025"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !ok {
		t.Fatal("Expected a cycle day for 03/14/2025")
	}
	if day != 5 {
		t.Errorf("Expected cycle day 5, got: %d", day)
	}

	// Time of day is ignored.
	afternoon := date(t, "03/14/2025").Add(15 * time.Hour)
	day, ok, err = cal.CycleDayFor(context.Background(), afternoon)
	if err != nil || !ok || day != 5 {
		t.Errorf("Expected cycle day 5 regardless of time of day, got: %d, %v, %v", day, ok, err)
	}

	// No entry for dates without both derivations.
	if _, ok, _ := cal.CycleDayFor(context.Background(), date(t, "03/17/2025")); ok {
		t.Error("Expected no cycle day for a date whose title has no numeric prefix")
	}
}

func TestWeekSchedule(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	schedule, err := cal.WeekSchedule(context.Background(), date(t, "03/14/2025"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(schedule) > weekScheduleDays {
		t.Fatalf("Expected at most %d entries, got: %d", weekScheduleDays, len(schedule))
	}
	if len(schedule) != 2 {
		t.Fatalf("Expected 2 upcoming entries, got: %d", len(schedule))
	}

	today := date(t, "03/14/2025")
	for _, entry := range schedule {
		if entry.Date.Before(today) {
			t.Errorf("Entry %q dated %v is before the query date", entry.Title, entry.Date)
		}
	}

	if schedule[0].Title != "5 - Half Day" || schedule[1].Title != "Spring Break" {
		t.Errorf("Unexpected schedule order: %q, %q", schedule[0].Title, schedule[1].Title)
	}
	if schedule[0].DayName != "Friday" {
		t.Errorf("Expected day name 'Friday', got '%s'", schedule[0].DayName)
	}
	if schedule[0].CycleDay == nil || *schedule[0].CycleDay != 5 {
		t.Error("Expected cycle day 5 on the first entry")
	}
}

func TestWeekScheduleCap(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>BTHS Events</title>
    <link>https://www.bths.edu</link>
    <description>School calendar</description>`
	for i := 1; i <= 8; i++ {
		body += fmt.Sprintf(`
    <item>
      <title>%d - Day</title>
      <description>04/%02d/2025
School day</description>
    </item>`, i, i)
	}
	body += `
  </channel>
</rss>`

	cal := newTestCalendar(t, body)
	schedule, err := cal.WeekSchedule(context.Background(), date(t, "04/01/2025"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(schedule) != weekScheduleDays {
		t.Errorf("Expected exactly %d entries, got: %d", weekScheduleDays, len(schedule))
	}
}

func TestSearchDateMode(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	// A date query matches by exact date only; "03/14/2025" also appears
	// in the description of the half-day item, but text matching is
	// ignored in this mode.
	results, err := cal.Search(context.Background(), "03/14/2025")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got: %d", len(results))
	}
	if results[0].Title != "5 - Half Day" {
		t.Errorf("Expected '5 - Half Day', got '%s'", results[0].Title)
	}
}

func TestSearchTextMode(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	results, err := cal.Search(context.Background(), "spring")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// Matches "Spring assembly" in a description and the "Spring Break" title.
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got: %d", len(results))
	}
}

func TestEventByTitle(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	event, err := cal.EventByTitle(context.Background(), "spring break")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if event == nil {
		t.Fatal("Expected an event, got nil")
	}
	if event.Title != "Spring Break" {
		t.Errorf("Expected 'Spring Break', got '%s'", event.Title)
	}

	event, err = cal.EventByTitle(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if event != nil {
		t.Errorf("Expected nil for unknown title, got: %v", event)
	}
}

func TestParseIdempotent(t *testing.T) {
	cal := newTestCalendar(t, calendarFeed)

	first, err := cal.parse([]byte(calendarFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := cal.parse([]byte(calendarFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if diff := cmp.Diff(first.events, second.events); diff != "" {
		t.Errorf("Event sequences differ between parses (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.cycleDays, second.cycleDays); diff != "" {
		t.Errorf("Cycle indices differ between parses (-first +second):\n%s", diff)
	}
}

func TestRefreshErrorsPropagate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := fetch.NewClient(server.Client(), "test-agent", 5*time.Second)
	cal := New(server.URL, fetcher)

	if _, _, err := cal.CycleDayFor(context.Background(), time.Now()); err == nil {
		t.Error("Expected transport error to propagate")
	}

	malformed := newTestCalendar(t, "not a feed")
	if _, err := malformed.Search(context.Background(), "anything"); err == nil {
		t.Error("Expected parse error to propagate")
	}
}
