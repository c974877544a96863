package util

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used for checkpoint values
// and partition keys.
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its calendar day in t's own location.
// Collection dates are carried as UTC midnights.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(now.In(loc))
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as ISO-8601.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays moves a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

