package countdown

import (
	"sort"
	"time"

	"timerdash/internal/model"
)

// PreShowWindow is how far ahead of its next window a recurring event is
// surfaced on the dashboard.
const PreShowWindow = 30 * time.Minute

// DashboardActive reports whether ev belongs in the "active & upcoming"
// bucket at now. One-off events stay there until their window closes;
// recurring events join PreShowWindow before a window opens.
func (e *Evaluator) DashboardActive(ev model.Event, now time.Time) bool {
	if !ev.IsRepeating {
		_, end, ok := e.OneOffWindow(ev)
		return ok && !now.After(end)
	}
	return e.dashboardActive(e.Evaluate(ev, now), now)
}

func (e *Evaluator) dashboardActive(st model.Status, now time.Time) bool {
	if st.IsActive {
		return true
	}
	return !st.Expired && st.Target != nil && st.Target.Sub(now) <= PreShowWindow
}

// Entry is one event on the dashboard together with its evaluated state.
type Entry struct {
	Event      model.Event
	Status     model.Status
	Recurrence string
	// Elapsed is set for past one-off events: time since their start.
	Elapsed *model.Countdown
}

// Dashboard groups events the way the UI shows them.
type Dashboard struct {
	At        time.Time
	Active    []Entry
	Scheduled []Entry
	Past      []Entry
}

// BuildDashboard evaluates every event at now and sorts it into a bucket.
// Active and scheduled entries are ordered by target; past entries keep
// the input order.
func (e *Evaluator) BuildDashboard(events []model.Event, now time.Time) Dashboard {
	now = now.In(e.loc)
	d := Dashboard{
		At:        now,
		Active:    []Entry{},
		Scheduled: []Entry{},
		Past:      []Entry{},
	}

	for _, ev := range events {
		entry, surfaced := e.Describe(ev, now)
		switch {
		case surfaced:
			d.Active = append(d.Active, entry)
		case entry.Status.Expired:
			d.Past = append(d.Past, entry)
		default:
			d.Scheduled = append(d.Scheduled, entry)
		}
	}

	sortByTarget(d.Active)
	sortByTarget(d.Scheduled)
	return d
}

// Describe evaluates a single event the way BuildDashboard does. surfaced
// reports whether it belongs in the active bucket.
func (e *Evaluator) Describe(ev model.Event, now time.Time) (entry Entry, surfaced bool) {
	now = now.In(e.loc)
	st := e.Evaluate(ev, now)
	entry = Entry{Event: ev, Status: st, Recurrence: FormatRecurrence(ev)}

	if ev.IsRepeating {
		surfaced = e.dashboardActive(st, now)
	} else {
		surfaced = e.DashboardActive(ev, now)
	}
	if !surfaced && st.Expired {
		if elapsed, ok := e.Elapsed(ev, now); ok {
			entry.Elapsed = &elapsed
		}
	}
	return entry, surfaced
}

// Elapsed returns the time since a one-off event started. ok is false for
// recurring events, unparseable starts and starts still in the future.
func (e *Evaluator) Elapsed(ev model.Event, now time.Time) (model.Countdown, bool) {
	if ev.IsRepeating {
		return model.Countdown{}, false
	}
	start, _, ok := e.OneOffWindow(ev)
	if !ok || now.Before(start) {
		return model.Countdown{}, false
	}
	return Split(now.Sub(start)), true
}

func sortByTarget(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Status.Target, entries[j].Status.Target
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
}
