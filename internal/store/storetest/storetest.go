// Package storetest is a compliance suite shared by every store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdash/internal/model"
	"timerdash/internal/store"
)

// Run exercises CRUD and ordering against a store returned by makeStore.
// Implementations should return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	dur := 90
	older := model.Event{
		ID:        "ev-" + uuid.NewString(),
		Name:      "Standup",
		StartDate: "2025-03-12T09:00:00Z",
		EndDate:   "2025-03-12T09:15:00Z",
		CreatedAt: base,
	}
	newer := model.Event{
		ID:          "ev-" + uuid.NewString(),
		Name:        "Stream",
		IsRepeating: true,
		TimeRanges:  []model.TimeRange{{StartTime: "22:00", EndTime: "02:00"}},
		Recurrence:  &model.Recurrence{Type: model.RecurrenceWeekly, DaysOfWeek: []int{1, 3}},
		EndDate:     "2025-06-30",
		CreatedAt:   base.Add(time.Hour),
	}
	legacy := model.Event{
		ID:             "ev-" + uuid.NewString(),
		Name:           "Legacy",
		IsRepeating:    true,
		RepeatTimes:    []string{"14:30"},
		ActiveDuration: &dur,
		CreatedAt:      base.Add(-time.Hour),
	}

	t.Run("create and get", func(t *testing.T) {
		for _, ev := range []model.Event{older, newer, legacy} {
			require.NoError(t, s.Create(ctx, ev))
		}

		got, err := s.Get(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, newer.Name, got.Name)
		assert.True(t, got.IsRepeating)
		assert.Equal(t, newer.TimeRanges, got.TimeRanges)
		require.NotNil(t, got.Recurrence)
		assert.Equal(t, model.RecurrenceWeekly, got.Recurrence.Type)
		assert.Equal(t, []int{1, 3}, got.Recurrence.DaysOfWeek)
		assert.Equal(t, "2025-06-30", got.EndDate)
		assert.True(t, newer.CreatedAt.Equal(got.CreatedAt))

		got, err = s.Get(ctx, legacy.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"14:30"}, got.RepeatTimes)
		require.NotNil(t, got.ActiveDuration)
		assert.Equal(t, 90, *got.ActiveDuration)
		assert.Nil(t, got.TimeRanges)
	})

	t.Run("create duplicate", func(t *testing.T) {
		err := s.Create(ctx, older)
		assert.ErrorIs(t, err, store.ErrExists)
	})

	t.Run("list newest first", func(t *testing.T) {
		list, err := s.List(ctx)
		require.NoError(t, err)

		want := map[string]bool{older.ID: true, newer.ID: true, legacy.ID: true}
		var ids []string
		for _, ev := range list {
			if want[ev.ID] {
				ids = append(ids, ev.ID)
			}
		}
		assert.Equal(t, []string{newer.ID, older.ID, legacy.ID}, ids)
	})

	t.Run("update", func(t *testing.T) {
		changed := older
		changed.Name = "Standup (moved)"
		changed.StartDate = "2025-03-12T10:00:00Z"
		require.NoError(t, s.Update(ctx, changed))

		got, err := s.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Standup (moved)", got.Name)
		assert.Equal(t, "2025-03-12T10:00:00Z", got.StartDate)
	})

	t.Run("update missing", func(t *testing.T) {
		err := s.Update(ctx, model.Event{ID: "missing-" + uuid.NewString(), Name: "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, legacy.ID))

		_, err := s.Get(ctx, legacy.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, legacy.ID), store.ErrNotFound)
	})
}
