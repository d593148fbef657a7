package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdash/internal/model"
)

func TestDashboardActivePreShowWindow(t *testing.T) {
	e := NewEvaluator(testLoc)
	ev := daily(tr("10:00", "11:00"))

	assert.True(t, e.DashboardActive(ev, at(2025, 3, 10, 9, 31)), "starts in 29 minutes")
	assert.True(t, e.DashboardActive(ev, at(2025, 3, 10, 9, 30)), "starts in exactly 30 minutes")
	assert.False(t, e.DashboardActive(ev, at(2025, 3, 10, 9, 29)), "starts in 31 minutes")
	assert.True(t, e.DashboardActive(ev, at(2025, 3, 10, 10, 45)), "currently active")
}

func TestDashboardActiveOneOff(t *testing.T) {
	e := NewEvaluator(testLoc)
	ev := model.Event{StartDate: "2025-04-01T09:00", EndDate: "2025-04-01T10:00"}

	assert.True(t, e.DashboardActive(ev, at(2025, 3, 1, 0, 0)), "far-off one-off events are always shown")
	assert.True(t, e.DashboardActive(ev, at(2025, 4, 1, 10, 0)))
	assert.False(t, e.DashboardActive(ev, at(2025, 4, 1, 10, 1)))
	assert.False(t, e.DashboardActive(model.Event{StartDate: "nope"}, at(2025, 4, 1, 10, 1)))
}

func TestDashboardActiveExpiredRecurring(t *testing.T) {
	e := NewEvaluator(testLoc)
	ev := daily(tr("10:00", "11:00"))
	ev.EndDate = "2025-03-01"

	assert.False(t, e.DashboardActive(ev, at(2025, 3, 10, 9, 45)))
}

func TestBuildDashboardBuckets(t *testing.T) {
	e := NewEvaluator(testLoc)
	now := at(2025, 3, 10, 9, 45)

	soon := daily(tr("10:00", "11:00"))
	soon.ID = "soon"
	later := daily(tr("18:00", "19:00"))
	later.ID = "later"
	running := daily(tr("09:00", "12:00"))
	running.ID = "running"
	upcoming := model.Event{ID: "upcoming", StartDate: "2025-03-12T08:00"}
	passed := model.Event{ID: "passed", StartDate: "2025-03-09T09:45"}
	finished := daily(tr("10:00", "11:00"))
	finished.ID = "finished"
	finished.EndDate = "2025-03-01"

	d := e.BuildDashboard([]model.Event{soon, later, running, upcoming, passed, finished}, now)

	assert.Equal(t, now, d.At)
	assert.Equal(t, []string{"soon", "running", "upcoming"}, ids(d.Active))
	assert.Equal(t, []string{"later"}, ids(d.Scheduled))
	assert.Equal(t, []string{"passed", "finished"}, ids(d.Past))

	require.NotNil(t, d.Past[0].Elapsed)
	assert.Equal(t, model.Countdown{Days: 1}, *d.Past[0].Elapsed)
	assert.Nil(t, d.Past[1].Elapsed)
	assert.Equal(t, "Daily: 18:00-19:00", d.Scheduled[0].Recurrence)
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := NewEvaluator(testLoc).BuildDashboard(nil, at(2025, 3, 10, 0, 0))
	assert.NotNil(t, d.Active)
	assert.NotNil(t, d.Scheduled)
	assert.NotNil(t, d.Past)
}

func TestElapsed(t *testing.T) {
	e := NewEvaluator(testLoc)
	ev := model.Event{StartDate: "2025-03-10T08:00"}

	got, ok := e.Elapsed(ev, at(2025, 3, 10, 9, 30).Add(15*time.Second))
	require.True(t, ok)
	assert.Equal(t, model.Countdown{Hours: 1, Minutes: 30, Seconds: 15}, got)

	_, ok = e.Elapsed(ev, at(2025, 3, 10, 7, 0))
	assert.False(t, ok)

	_, ok = e.Elapsed(daily(tr("08:00", "09:00")), at(2025, 3, 10, 9, 0))
	assert.False(t, ok)
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Event.ID)
	}
	return out
}

func TestDescribe(t *testing.T) {
	e := NewEvaluator(testLoc)

	entry, surfaced := e.Describe(daily(tr("10:00", "11:00")), at(2025, 3, 10, 9, 40))
	assert.True(t, surfaced)
	assert.Equal(t, "Daily: 10:00-11:00", entry.Recurrence)
	assert.Nil(t, entry.Elapsed)

	entry, surfaced = e.Describe(model.Event{StartDate: "2025-03-09T09:40"}, at(2025, 3, 10, 9, 40))
	assert.False(t, surfaced)
	assert.True(t, entry.Status.Expired)
	require.NotNil(t, entry.Elapsed)
	assert.Equal(t, model.Countdown{Days: 1}, *entry.Elapsed)
}
