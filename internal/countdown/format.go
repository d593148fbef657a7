package countdown

import (
	"strconv"
	"strings"

	"timerdash/internal/model"
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// FormatRecurrence describes a recurring event for display, e.g.
// "Weekly on Mon, Wed: 09:00-09:30". One-off events yield "".
func FormatRecurrence(ev model.Event) string {
	if !ev.IsRepeating {
		return ""
	}

	ranges := formatRanges(ev)
	rec := NormalizeRecurrence(ev)
	switch rec.Type {
	case model.RecurrenceDaily:
		return "Daily: " + ranges
	case model.RecurrenceWeekly, model.RecurrenceCustomDays:
		days := make([]string, 0, len(rec.DaysOfWeek))
		for _, d := range rec.DaysOfWeek {
			if d >= 0 && d <= 6 {
				days = append(days, weekdayNames[d])
			}
		}
		return "Weekly on " + strings.Join(days, ", ") + ": " + ranges
	case model.RecurrenceMonthly:
		return "Monthly on the " + strconv.Itoa(rec.DayOfMonth) + ": " + ranges
	default:
		return ranges
	}
}

func formatRanges(ev model.Event) string {
	// Legacy records without explicit ranges show start times and duration.
	if ev.TimeRanges == nil && len(ev.RepeatTimes) > 0 {
		parts := make([]string, 0, len(ev.RepeatTimes))
		suffix := " (for " + strconv.Itoa(activeDuration(ev)) + "m)"
		for _, s := range ev.RepeatTimes {
			parts = append(parts, s+suffix)
		}
		return strings.Join(parts, ", ")
	}

	parts := make([]string, 0, len(ev.TimeRanges))
	for _, r := range ev.TimeRanges {
		parts = append(parts, r.StartTime+"-"+r.EndTime)
	}
	return strings.Join(parts, ", ")
}
