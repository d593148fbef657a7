package countdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"timerdash/internal/model"
)

func TestNormalizeRangesPrecedence(t *testing.T) {
	explicit := []model.TimeRange{tr("10:00", "11:00")}

	ev := model.Event{
		IsRepeating: true,
		TimeRanges:  explicit,
		RepeatTimes: []string{"08:00"},
	}
	assert.Equal(t, explicit, NormalizeRanges(ev))

	ev.TimeRanges = nil
	assert.Equal(t, []model.TimeRange{tr("08:00", "09:00")}, NormalizeRanges(ev))

	ev.RepeatTimes = nil
	assert.Empty(t, NormalizeRanges(ev))
	assert.NotNil(t, NormalizeRanges(ev))
}

func TestNormalizeRangesLegacyWrapsPastMidnight(t *testing.T) {
	ev := model.Event{
		IsRepeating:    true,
		RepeatTimes:    []string{"23:30", "12:00"},
		ActiveDuration: intPtr(90),
	}
	assert.Equal(t, []model.TimeRange{
		tr("23:30", "01:00"),
		tr("12:00", "13:30"),
	}, NormalizeRanges(ev))
}

func TestNormalizeRangesLegacyDropsMalformed(t *testing.T) {
	ev := model.Event{
		IsRepeating:    true,
		RepeatTimes:    []string{"7", "xx:10", "07:60", "1:2:3", "07:05"},
		ActiveDuration: intPtr(15),
	}
	assert.Equal(t, []model.TimeRange{tr("07:05", "07:20")}, NormalizeRanges(ev))
}

func TestNormalizeRangesLegacyDefaultDuration(t *testing.T) {
	ev := model.Event{IsRepeating: true, RepeatTimes: []string{"06:15"}}
	assert.Equal(t, []model.TimeRange{tr("06:15", "07:15")}, NormalizeRanges(ev))

	ev.ActiveDuration = intPtr(0)
	assert.Equal(t, []model.TimeRange{tr("06:15", "07:15")}, NormalizeRanges(ev))
}

func TestNormalizeRangesLegacyFullDay(t *testing.T) {
	ev := model.Event{IsRepeating: true, RepeatTimes: []string{"06:00"}, ActiveDuration: intPtr(1440)}
	assert.Equal(t, []model.TimeRange{tr("06:00", "06:00")}, NormalizeRanges(ev))
}

func TestNormalizeRecurrenceDefaultsToDaily(t *testing.T) {
	assert.Equal(t, model.Recurrence{Type: model.RecurrenceDaily}, NormalizeRecurrence(model.Event{}))

	weekly := model.Recurrence{Type: model.RecurrenceWeekly, DaysOfWeek: []int{2}}
	assert.Equal(t, weekly, NormalizeRecurrence(model.Event{Recurrence: &weekly}))

	typeless := model.Recurrence{DaysOfWeek: []int{2}}
	assert.Equal(t, model.RecurrenceDaily, NormalizeRecurrence(model.Event{Recurrence: &typeless}).Type)
}

func TestParseClock(t *testing.T) {
	cases := map[string]struct {
		minutes int
		ok      bool
	}{
		"00:00":  {0, true},
		"23:59":  {23*60 + 59, true},
		" 7:05 ": {7*60 + 5, true},
		"24:00":  {0, false},
		"12":     {0, false},
		"12:3a":  {0, false},
		"":       {0, false},
		"-1:00":  {0, false},
	}
	for in, want := range cases {
		got, ok := ParseClock(in)
		assert.Equal(t, want.ok, ok, in)
		if want.ok {
			assert.Equal(t, want.minutes, got, in)
		}
	}
}
