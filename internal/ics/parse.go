package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "timerdash/internal/log"
	"timerdash/internal/model"
)

// weekdays maps rrule weekdays back onto Sunday=0 day numbers by index.
var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Skipped records a VEVENT that could not be converted.
type Skipped struct {
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// ImportResult is the outcome of parsing a calendar. Events carry no id or
// creation time; the caller assigns those when storing them.
type ImportResult struct {
	Events  []model.Event
	Skipped []Skipped
}

// Parse converts the VEVENTs of an iCalendar stream into events.
//
//   - VEVENTs without RRULE become one-off events.
//   - FREQ=DAILY/WEEKLY/MONTHLY become recurring events with one time range.
//     BYDAY maps to days of week, BYMONTHDAY to the day of month and UNTIL
//     to the end date.
//   - Anything the event model cannot express (INTERVAL, COUNT, yearly,
//     nth-weekday rules, windows of a day or more) is skipped and reported.
//
// Floating and all-day times are read as wall clock in loc.
func Parse(r io.Reader, loc *time.Location) (ImportResult, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "parse calendar")
	}

	res := ImportResult{Events: []model.Event{}, Skipped: []Skipped{}}
	for _, vev := range cal.Events() {
		uid := propValue(vev, ical.ComponentPropertyUniqueId)
		ev, perr := convertVEvent(vev, loc)
		if perr != nil {
			appLog.Info("ics import: skipping vevent", "uid", uid, "reason", perr.Error())
			res.Skipped = append(res.Skipped, Skipped{UID: uid, Reason: perr.Error()})
			continue
		}
		res.Events = append(res.Events, ev)
	}

	appLog.Info("ics import parsed", "event_count", len(res.Events), "skipped", len(res.Skipped))
	return res, nil
}

func convertVEvent(vev *ical.VEvent, loc *time.Location) (model.Event, error) {
	name := strings.TrimSpace(propValue(vev, ical.ComponentPropertySummary))
	if name == "" {
		return model.Event{}, errors.New("missing SUMMARY")
	}

	startProp := vev.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return model.Event{}, errors.New("missing DTSTART")
	}
	start, err := vev.GetStartAt()
	if err != nil {
		return model.Event{}, errors.Wrap(err, "invalid DTSTART")
	}
	start = toLocation(start, startProp, loc)

	end := start
	if endProp := vev.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if t, err := vev.GetEndAt(); err == nil {
			end = toLocation(t, endProp, loc)
		}
	}
	if end.Before(start) {
		return model.Event{}, errors.New("DTEND before DTSTART")
	}

	rule := propValue(vev, ical.ComponentPropertyRrule)
	if rule == "" {
		ev := model.Event{
			Name:      name,
			StartDate: start.Format(time.RFC3339),
		}
		if end.After(start) {
			ev.EndDate = end.Format(time.RFC3339)
		}
		return ev, nil
	}
	return convertRecurring(name, rule, start, end, loc)
}

func convertRecurring(name, rule string, start, end time.Time, loc *time.Location) (model.Event, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return model.Event{}, errors.Wrap(err, "invalid RRULE")
	}
	if opt.Interval > 1 {
		return model.Event{}, errors.New("RRULE INTERVAL is not supported")
	}
	if opt.Count > 0 {
		return model.Event{}, errors.New("RRULE COUNT is not supported")
	}
	if span := end.Sub(start); span <= 0 || span >= 24*time.Hour {
		return model.Event{}, errors.New("recurring window must be shorter than a day")
	}

	days, err := dayNumbers(opt.Byweekday)
	if err != nil {
		return model.Event{}, err
	}

	rec := &model.Recurrence{}
	switch opt.Freq {
	case rrule.DAILY:
		rec.Type = model.RecurrenceDaily
		if len(days) > 0 {
			rec.Type = model.RecurrenceCustomDays
			rec.DaysOfWeek = days
		}
	case rrule.WEEKLY:
		rec.Type = model.RecurrenceWeekly
		rec.DaysOfWeek = days
		if len(days) == 0 {
			rec.DaysOfWeek = []int{int(start.Weekday())}
		}
	case rrule.MONTHLY:
		if len(days) > 0 {
			return model.Event{}, errors.New("monthly BYDAY rules are not supported")
		}
		rec.Type = model.RecurrenceMonthly
		switch len(opt.Bymonthday) {
		case 0:
			rec.DayOfMonth = start.Day()
		case 1:
			if opt.Bymonthday[0] < 1 {
				return model.Event{}, errors.New("negative BYMONTHDAY is not supported")
			}
			rec.DayOfMonth = opt.Bymonthday[0]
		default:
			return model.Event{}, errors.New("multiple BYMONTHDAY values are not supported")
		}
	default:
		return model.Event{}, errors.Errorf("RRULE FREQ %v is not supported", opt.Freq)
	}

	ev := model.Event{
		Name:        name,
		IsRepeating: true,
		TimeRanges: []model.TimeRange{{
			StartTime: start.Format("15:04"),
			EndTime:   end.Format("15:04"),
		}},
		Recurrence: rec,
	}
	if !opt.Until.IsZero() {
		ev.EndDate = opt.Until.In(loc).Format("2006-01-02")
	}
	return ev, nil
}

func dayNumbers(byweekday []rrule.Weekday) ([]int, error) {
	out := make([]int, 0, len(byweekday))
	for _, wd := range byweekday {
		found := false
		for i, cand := range weekdays {
			if wd == cand {
				out = append(out, i)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.New("nth-weekday BYDAY values are not supported")
		}
	}
	return out, nil
}

// toLocation moves t into loc. Values without a zone (floating or all-day)
// keep their wall clock; zoned values keep their instant.
func toLocation(t time.Time, prop *ical.IANAProperty, loc *time.Location) time.Time {
	if isFloating(prop) {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
	return t.In(loc)
}

func isFloating(prop *ical.IANAProperty) bool {
	if tz, ok := prop.ICalParameters["TZID"]; ok && len(tz) > 0 {
		return false
	}
	return !strings.HasSuffix(strings.TrimSpace(prop.Value), "Z")
}

func propValue(vev *ical.VEvent, prop ical.ComponentProperty) string {
	if p := vev.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}
