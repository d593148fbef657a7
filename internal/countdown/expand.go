package countdown

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"timerdash/internal/model"
)

const (
	// lookbehindDays keeps yesterday's windows that run past midnight visible.
	lookbehindDays = 1
	// lookaheadDays bounds the search for the next occurrence.
	lookaheadDays = 35
)

// rruleWeekdays maps Sunday=0 day numbers onto rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Expand returns the occurrences of a recurring event whose start falls on a
// candidate day from yesterday through lookaheadDays ahead of now, sorted by
// start. One-off events have no expansion and yield nil.
func (e *Evaluator) Expand(ev model.Event, now time.Time) []model.Occurrence {
	if !ev.IsRepeating {
		return nil
	}
	ranges := parseRanges(NormalizeRanges(ev))
	if len(ranges) == 0 {
		return nil
	}

	days := e.candidateDays(NormalizeRecurrence(ev), now)
	out := make([]model.Occurrence, 0, len(days)*len(ranges))
	for _, day := range days {
		for _, r := range ranges {
			start := WallTime(day, r.start, e.loc)
			end := WallTime(day, r.end, e.loc)
			if !end.After(start) {
				// Window crosses midnight.
				end = WallTime(day.AddDate(0, 0, 1), r.end, e.loc)
			}
			out = append(out, model.Occurrence{Start: start, End: end})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// candidateDays lists the calendar days inside the expansion window that
// match rec, as midnight UTC dates.
func (e *Evaluator) candidateDays(rec model.Recurrence, now time.Time) []time.Time {
	opt, ok := DayRule(rec)
	if !ok {
		return nil
	}

	// rrule runs on plain dates in UTC; zones whose DST change skips
	// midnight would otherwise shift or repeat days.
	today := dateUTC(now.In(e.loc))
	opt.Dtstart = today.AddDate(0, 0, -lookbehindDays)
	opt.Until = today.AddDate(0, 0, lookaheadDays)

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}

	return r.All()
}

// DayRule translates a recurrence into rrule options without Dtstart/Until.
// ok is false when the recurrence can never match a day, e.g. a weekly rule
// with no valid weekdays.
func DayRule(rec model.Recurrence) (rrule.ROption, bool) {
	switch rec.Type {
	case model.RecurrenceWeekly, model.RecurrenceCustomDays:
		weekdays := make([]rrule.Weekday, 0, len(rec.DaysOfWeek))
		for _, d := range rec.DaysOfWeek {
			if d < 0 || d > 6 {
				continue
			}
			weekdays = append(weekdays, rruleWeekdays[d])
		}
		if len(weekdays) == 0 {
			return rrule.ROption{}, false
		}
		return rrule.ROption{Freq: rrule.WEEKLY, Byweekday: weekdays}, true
	case model.RecurrenceMonthly:
		if rec.DayOfMonth < 1 || rec.DayOfMonth > 31 {
			return rrule.ROption{}, false
		}
		return rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{rec.DayOfMonth}}, true
	default:
		return rrule.ROption{Freq: rrule.DAILY}, true
	}
}
