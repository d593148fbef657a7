package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"timerdash/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`

// SQLiteStore keeps each event as a JSON document keyed by id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path with WAL enabled.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "sqlite store: create data dir")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: open")
	}
	return newSQLiteStoreWithDB(db)
}

func newSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite store: ping")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite store: apply schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM events ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite store: list")
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.Wrap(err, "sqlite store: scan")
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(doc), &ev); err != nil {
			return nil, errors.Wrap(err, "sqlite store: decode")
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite store: list")
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Event, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM events WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, errors.Wrapf(err, "sqlite store: get %s", id)
	}
	var ev model.Event
	if err := json.Unmarshal([]byte(doc), &ev); err != nil {
		return model.Event{}, errors.Wrapf(err, "sqlite store: decode %s", id)
	}
	return ev, nil
}

func (s *SQLiteStore) Create(ctx context.Context, ev model.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "sqlite store: encode")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, created_at, doc) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		ev.ID, ev.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return errors.Wrapf(err, "sqlite store: insert %s", ev.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, ev model.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "sqlite store: encode")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET created_at = ?, doc = ? WHERE id = ?`,
		ev.CreatedAt.UnixNano(), string(doc), ev.ID)
	if err != nil {
		return errors.Wrapf(err, "sqlite store: update %s", ev.ID)
	}
	return expectOneRow(res, ev.ID)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "sqlite store: delete %s", id)
	}
	return expectOneRow(res, id)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "sqlite store: rows affected for %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
