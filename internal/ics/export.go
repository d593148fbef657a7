// Package ics converts tracked events to and from iCalendar.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"timerdash/internal/countdown"
	appLog "timerdash/internal/log"
	"timerdash/internal/model"
)

const (
	productID = "-//timerdash//events//EN"
	// floatingLayout is a DATE-TIME without zone: wall clock in the
	// calendar's timezone.
	floatingLayout = "20060102T150405"
)

// Export renders events as a VCALENDAR.
//
// One-off events become a single VEVENT in UTC. Each time range of a
// recurring event becomes its own VEVENT with a wall-clock DTSTART on the
// first matching day at or after the event's creation date and an RRULE
// carrying the day pattern and, when set, UNTIL from the end date.
func Export(events []model.Event, eval *countdown.Evaluator, now time.Time) string {
	loc := eval.Location()
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("timerdash")
	if loc != time.Local {
		cal.SetXWRTimezone(loc.String())
	}

	stamp := now.UTC()
	for _, ev := range events {
		if !ev.IsRepeating {
			exportOneOff(cal, eval, ev, stamp)
			continue
		}
		exportRecurring(cal, eval, ev, stamp)
	}
	return cal.Serialize()
}

func exportOneOff(cal *ical.Calendar, eval *countdown.Evaluator, ev model.Event, stamp time.Time) {
	start, end, ok := eval.OneOffWindow(ev)
	if !ok {
		appLog.Debug("ics export: skipping event without a valid window", "id", ev.ID)
		return
	}
	vev := cal.AddEvent(ev.ID)
	vev.SetSummary(ev.Name)
	vev.SetDtStampTime(stamp)
	if !ev.CreatedAt.IsZero() {
		vev.SetCreatedTime(ev.CreatedAt)
	}
	vev.SetStartAt(start)
	vev.SetEndAt(end)
}

func exportRecurring(cal *ical.Calendar, eval *countdown.Evaluator, ev model.Event, stamp time.Time) {
	loc := eval.Location()
	opt, ok := countdown.DayRule(countdown.NormalizeRecurrence(ev))
	if !ok {
		appLog.Debug("ics export: skipping recurrence that matches no day", "id", ev.ID)
		return
	}

	anchor := ev.CreatedAt
	if anchor.IsZero() {
		anchor = stamp
	}
	anchor = anchor.In(loc)
	anchorDay := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)

	first, ok := firstDay(opt, anchorDay)
	if !ok {
		return
	}

	var until time.Time
	if deadline, ok := eval.Deadline(ev); ok {
		if deadline.Before(countdown.WallTime(first, 0, loc)) {
			return
		}
		until = deadline.UTC()
	}
	opt.Until = until
	rule := opt.RRuleString()

	for i, tr := range countdown.NormalizeRanges(ev) {
		startMin, ok := countdown.ParseClock(tr.StartTime)
		if !ok {
			continue
		}
		endMin, ok := countdown.ParseClock(tr.EndTime)
		if !ok {
			continue
		}
		start := countdown.WallTime(first, startMin, loc)
		end := countdown.WallTime(first, endMin, loc)
		if !end.After(start) {
			end = countdown.WallTime(first.AddDate(0, 0, 1), endMin, loc)
		}

		vev := cal.AddEvent(fmt.Sprintf("%s-%d", ev.ID, i))
		vev.SetSummary(ev.Name)
		vev.SetDtStampTime(stamp)
		if !ev.CreatedAt.IsZero() {
			vev.SetCreatedTime(ev.CreatedAt)
		}
		vev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
		vev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
		vev.AddProperty(ical.ComponentPropertyRrule, rule)
	}
}

// firstDay returns the first day at or after from matched by opt. from is
// a calendar date at midnight UTC, and so is the result.
func firstDay(opt rrule.ROption, from time.Time) (time.Time, bool) {
	opt.Dtstart = from
	opt.Count = 1
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, false
	}
	all := r.All()
	if len(all) == 0 {
		return time.Time{}, false
	}
	return all[0], true
}
