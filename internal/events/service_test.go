package events

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdash/internal/countdown"
	"timerdash/internal/model"
	"timerdash/internal/store"
)

var testLoc = time.FixedZone("UTC+2", 2*60*60)

type fixture struct {
	svc   *Service
	store store.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)

	f := &fixture{store: st, now: time.Date(2025, 3, 11, 10, 0, 0, 123456789, testLoc)}
	seq := 0
	f.svc = NewService(st, countdown.NewEvaluator(testLoc),
		WithClock(func() time.Time { return f.now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return f
}

func TestCreateStampsIDAndCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.Create(ctx, model.Event{
		ID:        "client-chosen",
		Name:      "  Launch  ",
		StartDate: "2025-03-12T09:00:00+02:00",
		CreatedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "Launch", got.Name)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 0, 123000000, time.UTC), got.CreatedAt)

	stored, err := f.svc.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Launch", stored.Name)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, model.Event{Name: "   "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")

	_, err = f.svc.Create(ctx, model.Event{
		Name:        "Gym",
		IsRepeating: true,
		Recurrence:  &model.Recurrence{Type: "yearly"},
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "recurrence.type must be one of")

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateAcceptsEmptyRecurrenceType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), model.Event{
		Name:        "Gym",
		IsRepeating: true,
		TimeRanges:  []model.TimeRange{{StartTime: "18:00", EndTime: "19:00"}},
		Recurrence:  &model.Recurrence{Type: " "},
	})
	assert.NoError(t, err)
}

func TestUpdatePreservesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, model.Event{Name: "Launch", StartDate: "2025-03-12T09:00:00+02:00"})
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)
	updated, err := f.svc.Update(ctx, created.ID, model.Event{
		ID:          "other",
		Name:        "Stream",
		IsRepeating: true,
		TimeRanges:  []model.TimeRange{{StartTime: "20:00", EndTime: "21:00"}},
		Recurrence:  &model.Recurrence{Type: model.RecurrenceDaily},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stream", stored.Name)
	assert.True(t, stored.IsRepeating)
	assert.Empty(t, stored.StartDate, "update replaces the whole record")
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, "nope", model.Event{Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "nope"), store.ErrNotFound)
}

func TestStatusAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live, err := f.svc.Create(ctx, model.Event{
		Name:        "Stream",
		IsRepeating: true,
		TimeRanges:  []model.TimeRange{{StartTime: "10:15", EndTime: "11:00"}},
		Recurrence:  &model.Recurrence{Type: model.RecurrenceDaily},
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, model.Event{
		Name:      "Old launch",
		StartDate: "2025-03-10T09:00:00+02:00",
		EndDate:   "2025-03-10T10:00:00+02:00",
	})
	require.NoError(t, err)

	at := time.Date(2025, 3, 11, 10, 0, 0, 0, testLoc)
	entry, surfaced, err := f.svc.Status(ctx, live.ID, at)
	require.NoError(t, err)
	assert.True(t, surfaced, "15 minutes before the window is inside the pre-show")
	assert.False(t, entry.Status.IsActive)
	assert.Equal(t, 15*time.Minute, entry.Status.Difference)
	assert.Equal(t, "Daily: 10:15-11:00", entry.Recurrence)

	dash, err := f.svc.Dashboard(ctx, at)
	require.NoError(t, err)
	require.Len(t, dash.Active, 1)
	require.Len(t, dash.Past, 1)
	assert.Equal(t, "Old launch", dash.Past[0].Event.Name)
	require.NotNil(t, dash.Past[0].Elapsed)
	assert.EqualValues(t, 1, dash.Past[0].Elapsed.Days)

	_, _, err = f.svc.Status(ctx, "missing", at)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
