package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date ("2026-01-15") or an RFC 3339 timestamp and
// returns the civil date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return CivilDate(t), nil
	}
	return time.Time{}, Invalid(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
}

// FormatDate renders a civil date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CivilDate strips the clock from t, keeping the calendar day as seen in t's location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return CivilDate(now.In(loc))
}
