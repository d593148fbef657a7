// Package scheduler re-evaluates the dashboard on a cron cadence and fans
// each snapshot out to subscribers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"timerdash/internal/countdown"
	appLog "timerdash/internal/log"
)

// Source produces dashboards. *events.Service satisfies it.
type Source interface {
	Dashboard(ctx context.Context, at time.Time) (countdown.Dashboard, error)
	Now() time.Time
}

// ErrStopped is returned by Start once the Scheduler has been stopped.
var ErrStopped = errors.New("scheduler: stopped")

// Scheduler owns the cron loop and the latest dashboard snapshot. It is
// single-use: after Stop it cannot be started again.
type Scheduler struct {
	src  Source
	spec string
	cron *cron.Cron
	done chan struct{}

	mu      sync.RWMutex
	latest  *countdown.Dashboard
	subs    []chan countdown.Dashboard
	running bool
	stopped bool
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@every 1s") and returns a stopped Scheduler.
func New(src Source, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, errors.Wrapf(err, "invalid refresh schedule %q", spec)
	}
	return &Scheduler{
		src:  src,
		spec: spec,
		done: make(chan struct{}),
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		),
	}, nil
}

// Subscribe registers a channel that receives every new snapshot. Slow
// subscribers miss snapshots rather than block the loop. The channel is
// closed by Stop; subscribing after Stop yields a closed channel.
func (s *Scheduler) Subscribe(buffer int) <-chan countdown.Dashboard {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan countdown.Dashboard, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Latest returns the most recent snapshot, if any tick has completed.
func (s *Scheduler) Latest() (countdown.Dashboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return countdown.Dashboard{}, false
	}
	return *s.latest, true
}

// Tick runs one evaluation synchronously and publishes the result.
func (s *Scheduler) Tick(ctx context.Context) (countdown.Dashboard, error) {
	d, err := s.src.Dashboard(ctx, s.src.Now())
	if err != nil {
		return countdown.Dashboard{}, err
	}

	s.mu.Lock()
	s.latest = &d
	for _, ch := range s.subs {
		select {
		case ch <- d:
		default:
		}
	}
	s.mu.Unlock()

	appLog.Debug("dashboard refreshed",
		"active", len(d.Active),
		"scheduled", len(d.Scheduled),
		"past", len(d.Past),
	)
	return d, nil
}

// Start runs an initial tick and then ticks on the configured schedule
// until Stop is called or ctx is cancelled. Starting a running Scheduler
// is a no-op; starting a stopped one returns ErrStopped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return ErrStopped
	case s.running:
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if _, err := s.Tick(ctx); err != nil {
		appLog.Error("initial dashboard refresh failed", err)
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Tick(ctx); err != nil {
			appLog.Error("dashboard refresh failed", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "schedule refresh")
	}
	s.cron.Start()
	appLog.Info("scheduler started", "refresh", s.spec)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()
	return nil
}

// Stop halts the cron loop, waits for a running tick and closes all
// subscriber channels. It is safe to call more than once, and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	close(s.done)
	if wasRunning {
		<-s.cron.Stop().Done()
	}

	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
	appLog.Info("scheduler stopped")
}

// cronLogger routes robfig/cron's logging through the app logger. Per-run
// chatter goes to debug.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
