package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerdash/internal/countdown"
	"timerdash/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	now   time.Time
	calls int
	err   error
}

func (f *fakeSource) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeSource) Dashboard(_ context.Context, at time.Time) (countdown.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return countdown.Dashboard{}, f.err
	}
	return countdown.Dashboard{
		At:     at,
		Active: []countdown.Entry{{Event: model.Event{ID: "a"}}},
	}, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fakeSource{}, "every now and then")
	assert.Error(t, err)

	_, err = New(&fakeSource{}, "*/5 * * * *")
	assert.NoError(t, err)
}

func TestTickPublishesSnapshot(t *testing.T) {
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{now: at}
	s, err := New(src, "@every 1s")
	require.NoError(t, err)

	_, ok := s.Latest()
	assert.False(t, ok)

	sub := s.Subscribe(1)
	d, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, d.At)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, at, latest.At)

	select {
	case got := <-sub:
		assert.Equal(t, at, got.At)
	default:
		t.Fatal("subscriber did not receive snapshot")
	}
}

func TestTickDoesNotBlockOnSlowSubscriber(t *testing.T) {
	src := &fakeSource{now: time.Now()}
	s, err := New(src, "@every 1s")
	require.NoError(t, err)

	sub := s.Subscribe(1)
	for i := 0; i < 3; i++ {
		_, err := s.Tick(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, sub, 1)
	assert.Equal(t, 3, src.calls)
}

func TestTickErrorKeepsPreviousSnapshot(t *testing.T) {
	at := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{now: at}
	s, err := New(src, "@every 1s")
	require.NoError(t, err)

	_, err = s.Tick(context.Background())
	require.NoError(t, err)

	src.mu.Lock()
	src.err = errors.New("store down")
	src.now = at.Add(time.Minute)
	src.mu.Unlock()

	_, err = s.Tick(context.Background())
	assert.Error(t, err)
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, at, latest.At)
}

func TestStartTicksAndContextCancelStops(t *testing.T) {
	src := &fakeSource{now: time.Now()}
	s, err := New(src, "@every 1h")
	require.NoError(t, err)

	sub := s.Subscribe(4)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	_, ok := s.Latest()
	assert.True(t, ok, "Start performs an initial tick")
	<-sub

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-sub:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
}

func TestSchedulerIsSingleUse(t *testing.T) {
	src := &fakeSource{now: time.Now()}
	s, err := New(src, "@every 1h")
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second Start while running is a no-op")
	s.Stop()
	s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
	assert.Len(t, s.cron.Entries(), 1, "the refresh job is registered once")

	_, open := <-s.Subscribe(1)
	assert.False(t, open, "subscribing after Stop yields a closed channel")
}

func TestStopBeforeStart(t *testing.T) {
	s, err := New(&fakeSource{now: time.Now()}, "@every 1h")
	require.NoError(t, err)

	sub := s.Subscribe(1)
	s.Stop()
	_, open := <-sub
	assert.False(t, open)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}
