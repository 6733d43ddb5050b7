// Package eventlog records companion lifecycle events in SQLite.
package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Event is one observed companion transition or coordinator action.
type Event struct {
	ID      int64     `json:"id"`
	Session string    `json:"session"`
	Kind    string    `json:"kind"`
	Phase   string    `json:"phase"`
	PID     int       `json:"pid,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Event kinds.
const (
	KindDiscovery  = "discovery"
	KindSpawn      = "spawn"
	KindTransition = "transition"
	KindReaped     = "reaped"
	KindShutdown   = "shutdown"
)

// Store persists events in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens/creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("event log path required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create event log directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companion_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		kind TEXT NOT NULL,
		phase TEXT,
		pid INTEGER,
		detail TEXT,
		at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS companion_events_session ON companion_events(session, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an event. A zero At is set to now.
func (s *Store) Record(ctx context.Context, event Event) error {
	if event.Session == "" || event.Kind == "" {
		return errors.New("event session and kind required")
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companion_events (session, kind, phase, pid, detail, at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.Session, event.Kind, event.Phase, event.PID, event.Detail, event.At.UTC(),
	)
	return err
}

// List returns events oldest first. An empty session lists every session;
// limit <= 0 means no limit and otherwise keeps the newest events.
func (s *Store) List(ctx context.Context, session string, limit int) ([]Event, error) {
	query := `SELECT id, session, kind, phase, pid, detail, at FROM companion_events`
	var args []any
	if session != "" {
		query += ` WHERE session = ?`
		args = append(args, session)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev     Event
			phase  sql.NullString
			pid    sql.NullInt64
			detail sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Session, &ev.Kind, &phase, &pid, &detail, &ev.At); err != nil {
			return nil, err
		}
		ev.Phase = phase.String
		ev.PID = int(pid.Int64)
		ev.Detail = detail.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Sessions returns the distinct session identifiers, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session FROM companion_events GROUP BY session ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
