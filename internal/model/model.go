package model

import "time"

// RecurrenceType selects which calendar days a recurring event lands on.
type RecurrenceType string

const (
	RecurrenceDaily      RecurrenceType = "daily"
	RecurrenceWeekly     RecurrenceType = "weekly"
	RecurrenceCustomDays RecurrenceType = "custom_days"
	RecurrenceMonthly    RecurrenceType = "monthly"
)

// Recurrence describes the day pattern of a recurring event.
type Recurrence struct {
	Type RecurrenceType `json:"type" bson:"type" validate:"omitempty,oneof=daily weekly custom_days monthly"`

	// DaysOfWeek is used by weekly and custom_days (Sunday=0).
	DaysOfWeek []int `json:"daysOfWeek,omitempty" bson:"daysOfWeek,omitempty"`

	// DayOfMonth is used by monthly (1-31).
	DayOfMonth int `json:"dayOfMonth,omitempty" bson:"dayOfMonth,omitempty"`
}

// TimeRange is a wall-clock window in "HH:MM" 24-hour form. EndTime at or
// before StartTime means the window runs past midnight.
type TimeRange struct {
	StartTime string `json:"startTime" bson:"startTime"`
	EndTime   string `json:"endTime" bson:"endTime"`
}

// Event is a tracked item as stored by the storage collaborator.
//
// Instants and dates are kept as the strings clients sent; the countdown
// engine parses them against its configured location. Several historical
// shapes are accepted side by side:
//
//   - one-off: StartDate/EndDate, or the legacy single Date
//   - recurring: TimeRanges + Recurrence, or legacy RepeatTimes + ActiveDuration
//
// TimeRanges deliberately has no omitempty: an explicit empty list and an
// absent list normalize differently.
type Event struct {
	ID          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name" validate:"required"`
	IsRepeating bool   `json:"isRepeating" bson:"isRepeating"`

	// One-off shape.
	Date      string `json:"date,omitempty" bson:"date,omitempty"`
	StartDate string `json:"startDate,omitempty" bson:"startDate,omitempty"`

	// EndDate is an instant for one-off events and a calendar date (last
	// day on which occurrences count) for recurring events.
	EndDate string `json:"endDate,omitempty" bson:"endDate,omitempty"`

	// Recurring shape.
	TimeRanges []TimeRange `json:"timeRanges" bson:"timeRanges"`
	Recurrence *Recurrence `json:"recurrence,omitempty" bson:"recurrence,omitempty"`

	// Legacy recurring shape.
	RepeatTimes    []string `json:"repeatTimes,omitempty" bson:"repeatTimes,omitempty"`
	ActiveDuration *int     `json:"activeDuration,omitempty" bson:"activeDuration,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Occurrence is a single concrete window of an event after recurrence
// expansion, in the engine's location.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the closed window [Start, End].
func (o Occurrence) Contains(t time.Time) bool {
	return !t.Before(o.Start) && !t.After(o.End)
}

// Countdown is a non-negative duration split into display units.
// Days is unbounded; the other fields are taken modulo the next unit.
type Countdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	Millis  int64 `json:"ms"`
}

// Status is the evaluated state of an event at a reference instant.
//
// Target is the instant the countdown drives toward: the end of the active
// window, or the next start. A nil Target always comes with Expired set and
// a zero Difference.
type Status struct {
	Expired    bool
	IsActive   bool
	Target     *time.Time
	Difference time.Duration
	Countdown
}
