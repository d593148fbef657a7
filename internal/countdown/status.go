// Package countdown evaluates tracked events against a reference instant.
//
// Every function here is pure and total: malformed input degrades to an
// expired status instead of an error, so callers can always render a result.
// Calendar boundaries (midnight, weekday, day of month) are computed in the
// Evaluator's location rather than the host's.
package countdown

import (
	"time"

	"timerdash/internal/model"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Evaluator computes event statuses in a fixed location. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	loc *time.Location
}

// NewEvaluator returns an Evaluator for loc. A nil loc means time.Local.
func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{loc: loc}
}

// Location returns the calendar location used for evaluation.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Evaluate derives the status of ev at now.
func (e *Evaluator) Evaluate(ev model.Event, now time.Time) model.Status {
	now = now.In(e.loc)
	if !ev.IsRepeating {
		return e.evaluateOneOff(ev, now)
	}
	return e.evaluateRecurring(ev, now)
}

func (e *Evaluator) evaluateOneOff(ev model.Event, now time.Time) model.Status {
	start, end, ok := e.OneOffWindow(ev)
	if !ok {
		return expiredStatus()
	}
	switch {
	case now.Before(start):
		return newStatus(false, start, now)
	case !now.After(end):
		return newStatus(true, end, now)
	default:
		return expiredStatus()
	}
}

// OneOffWindow resolves the [start, end] window of a one-off event. ok is
// false when there is no parseable start or the end precedes the start.
func (e *Evaluator) OneOffWindow(ev model.Event) (time.Time, time.Time, bool) {
	raw := ev.StartDate
	if raw == "" {
		raw = ev.Date
	}
	start, ok := parseInstant(raw, e.loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end := start
	if t, ok := parseInstant(ev.EndDate, e.loc); ok {
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (e *Evaluator) evaluateRecurring(ev model.Event, now time.Time) model.Status {
	var (
		active bool
		target *time.Time
	)
	for _, occ := range e.Expand(ev, now) {
		if occ.Contains(now) {
			active = true
			t := occ.End
			target = &t
			break
		}
		if occ.Start.After(now) {
			t := occ.Start
			target = &t
			break
		}
	}

	if deadline, ok := e.Deadline(ev); ok {
		if now.After(deadline) && !active {
			return expiredStatus()
		}
		if target != nil && target.After(deadline) {
			target = nil
		}
	}

	if target == nil {
		return expiredStatus()
	}
	return newStatus(active, *target, now)
}

// Deadline returns the last instant a recurring event may count toward:
// 23:59:59.999 on its EndDate. Unparseable end dates impose no deadline.
func (e *Evaluator) Deadline(ev model.Event) (time.Time, bool) {
	t, ok := parseInstant(ev.EndDate, e.loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999*int(time.Millisecond), e.loc), true
}

func newStatus(active bool, target, now time.Time) model.Status {
	diff := target.Sub(now)
	if diff < 0 {
		diff = 0
	}
	return model.Status{
		Expired:    false,
		IsActive:   active,
		Target:     &target,
		Difference: diff,
		Countdown:  Split(diff),
	}
}

func expiredStatus() model.Status {
	return model.Status{Expired: true}
}

// Split breaks a duration into days, hours, minutes, seconds and
// milliseconds. Negative durations count as zero.
func Split(d time.Duration) model.Countdown {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return model.Countdown{
		Days:    ms / msPerDay,
		Hours:   ms / msPerHour % 24,
		Minutes: ms / msPerMinute % 60,
		Seconds: ms / msPerSecond % 60,
		Millis:  ms % msPerSecond,
	}
}
