package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cwarden/timegrid/internal/calendar"
)

// Timestamps are stored as UTC RFC3339 so that text comparison orders them.
const timeLayout = time.RFC3339

var migrations = []string{
	`CREATE TABLE events (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		all_day     INTEGER NOT NULL DEFAULT 0,
		color       TEXT NOT NULL DEFAULT '',
		recurrence  TEXT,
		draggable   INTEGER NOT NULL DEFAULT 1,
		resizable   INTEGER NOT NULL DEFAULT 1,
		editable    INTEGER NOT NULL DEFAULT 1,
		original_id TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX events_window ON events (start_time, end_time)`,
}

const columns = `id, title, start_time, end_time, all_day, color, recurrence,
	draggable, resizable, editable, original_id, source`

// SQLite stores events in a single table of a SQLite database.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and brings its schema
// up to date. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Name() string { return filepath.Base(s.path) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		for i := version; i < len(migrations); i++ {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return fmt.Errorf("migration %d: %w", i+1, err)
			}
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		s.logger.Info("database migrated", "path", s.path, "from", version, "to", len(migrations))
		return nil
	})
}

// withTransaction commits when fn succeeds and rolls back otherwise.
func (s *SQLite) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM events
		WHERE start_time < ? AND (end_time > ? OR recurrence IS NOT NULL)
		ORDER BY start_time, id`,
		to.UTC().Format(timeLayout), from.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []calendar.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	calendar.SortByStart(out)
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (calendar.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return calendar.Event{}, ErrNotFound
	}
	return ev, err
}

func (s *SQLite) Put(ctx context.Context, ev calendar.Event) error {
	if err := checkPut(ev); err != nil {
		return err
	}
	var rule sql.NullString
	if ev.Recurrence != nil {
		data, err := json.Marshal(ev.Recurrence)
		if err != nil {
			return fmt.Errorf("encode recurrence: %w", err)
		}
		rule = sql.NullString{String: string(data), Valid: true}
	}

	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO events (`+columns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				all_day = excluded.all_day,
				color = excluded.color,
				recurrence = excluded.recurrence,
				draggable = excluded.draggable,
				resizable = excluded.resizable,
				editable = excluded.editable,
				original_id = excluded.original_id,
				source = excluded.source,
				updated_at = excluded.updated_at`,
			ev.ID, ev.Title,
			ev.Start.UTC().Format(timeLayout), ev.End.UTC().Format(timeLayout),
			ev.AllDay, ev.Color, rule,
			ev.Draggable, ev.Resizable, ev.Editable,
			ev.OriginalID, ev.Source,
			time.Now().UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("store event %s: %w", ev.ID, err)
		}
		return nil
	})
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (calendar.Event, error) {
	var (
		ev         calendar.Event
		start, end string
		rule       sql.NullString
	)
	err := sc.Scan(&ev.ID, &ev.Title, &start, &end, &ev.AllDay, &ev.Color, &rule,
		&ev.Draggable, &ev.Resizable, &ev.Editable, &ev.OriginalID, &ev.Source)
	if err != nil {
		return ev, err
	}
	if ev.Start, err = time.Parse(timeLayout, start); err != nil {
		return ev, fmt.Errorf("event %s start: %w", ev.ID, err)
	}
	if ev.End, err = time.Parse(timeLayout, end); err != nil {
		return ev, fmt.Errorf("event %s end: %w", ev.ID, err)
	}
	ev.Start, ev.End = ev.Start.In(time.Local), ev.End.In(time.Local)
	if rule.Valid {
		var r calendar.RecurrenceRule
		if err := json.Unmarshal([]byte(rule.String), &r); err != nil {
			return ev, fmt.Errorf("event %s recurrence: %w", ev.ID, err)
		}
		ev.Recurrence = &r
	}
	return ev, nil
}
