package countdown

import (
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// instantLayouts are tried in order. Layouts without a zone are read in the
// evaluator's location.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// formatClock renders minutes after midnight as "HH:MM", wrapping at 24h.
func formatClock(minutes int) string {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	h, m := minutes/60, minutes%60
	return pad2(h) + ":" + pad2(m)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// dateUTC returns t's calendar date as midnight UTC.
func dateUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WallTime returns the instant in loc at the given minute of date's
// calendar day; only date's year, month and day are used. A wall time that
// falls in a DST gap moves forward by the gap, so 00:30 on a day whose
// clocks jump from 00:00 to 01:00 becomes 01:30.
func WallTime(date time.Time, minutes int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	hh, mm := minutes/60, minutes%60
	t := time.Date(y, m, d, hh, mm, 0, 0, loc)
	if t.Day() == d && t.Hour() == hh && t.Minute() == mm {
		return t
	}
	// t is the wall time read with one of the two offsets around the gap;
	// reading it with the other and keeping the later instant moves forward.
	_, offset := t.Zone()
	wall := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	if alt := wall.Add(-time.Duration(offset) * time.Second); alt.After(t) {
		return alt.In(loc)
	}
	return t
}
