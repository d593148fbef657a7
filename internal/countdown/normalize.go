package countdown

import (
	"timerdash/internal/model"
)

// DefaultActiveDuration applies to legacy events stored without an
// activeDuration, in minutes.
const DefaultActiveDuration = 60

// NormalizeRanges returns the time ranges of a recurring event in the
// current schema.
//
// Precedence:
//   - TimeRanges, when present (even if empty), is used as-is
//   - legacy RepeatTimes + ActiveDuration become one range per start time
//   - otherwise there are no ranges
//
// Malformed legacy start times are dropped individually.
func NormalizeRanges(ev model.Event) []model.TimeRange {
	if ev.TimeRanges != nil {
		return ev.TimeRanges
	}
	if len(ev.RepeatTimes) == 0 {
		return []model.TimeRange{}
	}

	dur := activeDuration(ev)
	out := make([]model.TimeRange, 0, len(ev.RepeatTimes))
	for _, s := range ev.RepeatTimes {
		start, ok := ParseClock(s)
		if !ok {
			continue
		}
		out = append(out, model.TimeRange{
			StartTime: formatClock(start),
			EndTime:   formatClock(start + dur),
		})
	}
	return out
}

// NormalizeRecurrence returns the event's recurrence, defaulting to daily.
func NormalizeRecurrence(ev model.Event) model.Recurrence {
	if ev.Recurrence == nil || ev.Recurrence.Type == "" {
		rec := model.Recurrence{Type: model.RecurrenceDaily}
		if ev.Recurrence != nil {
			rec.DaysOfWeek = ev.Recurrence.DaysOfWeek
			rec.DayOfMonth = ev.Recurrence.DayOfMonth
		}
		return rec
	}
	return *ev.Recurrence
}

func activeDuration(ev model.Event) int {
	if ev.ActiveDuration == nil || *ev.ActiveDuration == 0 {
		return DefaultActiveDuration
	}
	return *ev.ActiveDuration
}

// clockRange is a parsed TimeRange in minutes after midnight.
type clockRange struct {
	start int
	end   int
}

// parseRanges drops ranges whose start or end is malformed.
func parseRanges(ranges []model.TimeRange) []clockRange {
	out := make([]clockRange, 0, len(ranges))
	for _, r := range ranges {
		start, ok := ParseClock(r.StartTime)
		if !ok {
			continue
		}
		end, ok := ParseClock(r.EndTime)
		if !ok {
			continue
		}
		out = append(out, clockRange{start: start, end: end})
	}
	return out
}
