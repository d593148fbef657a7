package store

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"timerdash/internal/fsutil"
	appLog "timerdash/internal/log"
	"timerdash/internal/model"
)

// FileStore keeps all events in memory and rewrites a JSON file atomically
// on every change. Suitable for a single process.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	events map[string]model.Event
}

// NewFileStore loads path if it exists; a missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: path is empty")
	}
	s := &FileStore{path: path, events: make(map[string]model.Event)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "file store: read %s", path)
	}
	if len(data) == 0 {
		return s, nil
	}

	var list []model.Event
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrapf(err, "file store: decode %s", path)
	}
	for _, ev := range list {
		s.events[ev.ID] = ev
	}
	appLog.Info("file store loaded", "path", path, "event_count", len(list))
	return s, nil
}

func (s *FileStore) List(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

func (s *FileStore) Get(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return ev, nil
}

func (s *FileStore) Create(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return ErrExists
	}
	s.events[ev.ID] = ev
	if err := s.flushLocked(); err != nil {
		delete(s.events, ev.ID)
		return err
	}
	return nil
}

func (s *FileStore) Update(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.events[ev.ID]
	if !ok {
		return ErrNotFound
	}
	s.events[ev.ID] = ev
	if err := s.flushLocked(); err != nil {
		s.events[ev.ID] = prev
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	if err := s.flushLocked(); err != nil {
		s.events[id] = prev
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) snapshotLocked() []model.Event {
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sortNewestFirst(out)
	return out
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "file store: encode")
	}
	if err := fsutil.WriteFileAtomic(s.path, data, ".timerdash-events-*.tmp"); err != nil {
		return errors.Wrapf(err, "file store: write %s", s.path)
	}
	return nil
}
