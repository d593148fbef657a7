// Package store persists event records. Backends are interchangeable; the
// countdown engine only ever sees model.Event snapshots read from here.
package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"timerdash/internal/config"
	"timerdash/internal/model"
)

var (
	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = errors.New("event not found")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("event already exists")
)

// Store is CRUD over event records keyed by their opaque id.
type Store interface {
	// List returns all events, newest CreatedAt first.
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	Create(ctx context.Context, ev model.Event) error
	// Update replaces the stored record with the same id.
	Update(ctx context.Context, ev model.Event) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Path)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection)
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.URI,
			Password: cfg.Password,
			DB:       cfg.DB,
			Key:      cfg.Collection,
		})
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// sortNewestFirst orders events by CreatedAt descending, then by id so the
// order is stable across backends.
func sortNewestFirst(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
