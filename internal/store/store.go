// SPDX-License-Identifier: MIT

// Package store persists detected events in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/argus-video/argus/internal/domain"
	_ "modernc.org/sqlite" // Pure Go driver
)

const busyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS event_logs (
	event_id                          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_timestamp                   TEXT NOT NULL,
	event_code                        VARCHAR(20) NOT NULL,
	event_description                 TEXT NOT NULL,
	event_video_url                   VARCHAR(255) NOT NULL,
	event_detection_explanation_by_ai TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_logs_timestamp ON event_logs (event_timestamp);
`

// Store wraps the event_logs table. The underlying pool is safe for
// concurrent use; every write effectively gets its own connection.
type Store struct {
	db *sql.DB
}

// Open initializes the sqlite pool with the mandatory PRAGMAs and ensures
// the schema exists. The DSN applies the PRAGMAs to every pooled connection.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes one event and returns its assigned id.
func (s *Store) Insert(ctx context.Context, e domain.Event) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO event_logs
		 (event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Code, e.Description, e.VideoPath, e.Explanation,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read event id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit events ordered by event_timestamp descending.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai
		 FROM event_logs ORDER BY event_timestamp DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByID returns a single event or domain.ErrEventNotFound.
func (s *Store) ByID(ctx context.Context, id int64) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id, event_timestamp, event_code, event_description, event_video_url, event_detection_explanation_by_ai
		 FROM event_logs WHERE event_id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var (
		e  domain.Event
		ts string
	)
	if err := row.Scan(&e.ID, &ts, &e.Code, &e.Description, &e.VideoPath, &e.Explanation); err != nil {
		return domain.Event{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.Event{}, fmt.Errorf("parse stored timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed.UTC()
	return e, nil
}
