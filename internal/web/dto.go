package web

import (
	"time"

	"timerdash/internal/countdown"
	"timerdash/internal/ics"
	"timerdash/internal/model"
)

// statusDTO is the JSON shape of an evaluated status. Difference is in
// milliseconds; Target is null when there is nothing left to count to.
type statusDTO struct {
	Expired    bool       `json:"expired"`
	IsActive   bool       `json:"isActive"`
	Target     *time.Time `json:"target"`
	Difference int64      `json:"difference"`
	model.Countdown
}

func newStatusDTO(st model.Status) statusDTO {
	return statusDTO{
		Expired:    st.Expired,
		IsActive:   st.IsActive,
		Target:     st.Target,
		Difference: st.Difference.Milliseconds(),
		Countdown:  st.Countdown,
	}
}

// entryDTO is one event with its evaluated state.
type entryDTO struct {
	Event           model.Event      `json:"event"`
	Status          statusDTO        `json:"status"`
	Recurrence      string           `json:"recurrence,omitempty"`
	DashboardActive bool             `json:"dashboardActive"`
	Elapsed         *model.Countdown `json:"elapsed,omitempty"`
}

func newEntryDTO(e countdown.Entry, surfaced bool) entryDTO {
	return entryDTO{
		Event:           e.Event,
		Status:          newStatusDTO(e.Status),
		Recurrence:      e.Recurrence,
		DashboardActive: surfaced,
		Elapsed:         e.Elapsed,
	}
}

type dashboardDTO struct {
	At        time.Time  `json:"at"`
	Timezone  string     `json:"timezone"`
	Active    []entryDTO `json:"active"`
	Scheduled []entryDTO `json:"scheduled"`
	Past      []entryDTO `json:"past"`
}

func newDashboardDTO(d countdown.Dashboard) dashboardDTO {
	conv := func(entries []countdown.Entry, surfaced bool) []entryDTO {
		out := make([]entryDTO, 0, len(entries))
		for _, e := range entries {
			out = append(out, newEntryDTO(e, surfaced))
		}
		return out
	}
	return dashboardDTO{
		At:        d.At,
		Timezone:  d.At.Location().String(),
		Active:    conv(d.Active, true),
		Scheduled: conv(d.Scheduled, false),
		Past:      conv(d.Past, false),
	}
}

type importRequest struct {
	// Source is the id of a configured ICS source.
	Source string `json:"source"`
}

// importResponse lists what an import created. Error is set when the
// import stopped partway.
type importResponse struct {
	Created []model.Event `json:"created"`
	Skipped []ics.Skipped `json:"skipped"`
	Error   string        `json:"error,omitempty"`
}
