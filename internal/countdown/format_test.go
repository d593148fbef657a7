package countdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"timerdash/internal/model"
)

func TestFormatRecurrence(t *testing.T) {
	cases := []struct {
		name string
		ev   model.Event
		want string
	}{
		{
			name: "one-off",
			ev:   model.Event{StartDate: "2025-03-10"},
			want: "",
		},
		{
			name: "daily",
			ev:   daily(tr("08:00", "09:00"), tr("23:00", "01:00")),
			want: "Daily: 08:00-09:00, 23:00-01:00",
		},
		{
			name: "weekly",
			ev: model.Event{
				IsRepeating: true,
				Recurrence:  &model.Recurrence{Type: model.RecurrenceWeekly, DaysOfWeek: []int{1, 3}},
				TimeRanges:  []model.TimeRange{tr("09:00", "09:30")},
			},
			want: "Weekly on Mon, Wed: 09:00-09:30",
		},
		{
			name: "custom days",
			ev: model.Event{
				IsRepeating: true,
				Recurrence:  &model.Recurrence{Type: model.RecurrenceCustomDays, DaysOfWeek: []int{6, 0}},
				TimeRanges:  []model.TimeRange{tr("10:00", "12:00")},
			},
			want: "Weekly on Sat, Sun: 10:00-12:00",
		},
		{
			name: "monthly",
			ev: model.Event{
				IsRepeating: true,
				Recurrence:  &model.Recurrence{Type: model.RecurrenceMonthly, DayOfMonth: 15},
				TimeRanges:  []model.TimeRange{tr("10:00", "11:00")},
			},
			want: "Monthly on the 15: 10:00-11:00",
		},
		{
			name: "legacy",
			ev: model.Event{
				IsRepeating:    true,
				RepeatTimes:    []string{"08:00", "20:00"},
				ActiveDuration: intPtr(45),
			},
			want: "Daily: 08:00 (for 45m), 20:00 (for 45m)",
		},
		{
			name: "unknown type",
			ev: model.Event{
				IsRepeating: true,
				Recurrence:  &model.Recurrence{Type: "yearly"},
				TimeRanges:  []model.TimeRange{tr("10:00", "11:00")},
			},
			want: "10:00-11:00",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatRecurrence(tc.ev))
		})
	}
}
