package calendar

import (
	"time"
)

// Event is one calendar feed item. CycleDay and Date are best-effort
// derivations from the feed text; either may be absent when the source
// item does not carry them.
type Event struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PubDate     string     `json:"pub_date"` // raw feed value
	Link        string     `json:"link,omitempty"`
	CycleDay    *int       `json:"cycle_day,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// DayEntry is one row of the upcoming week schedule.
type DayEntry struct {
	Date        time.Time `json:"date"`
	DayName     string    `json:"day_name"`
	CycleDay    *int      `json:"cycle_day,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
