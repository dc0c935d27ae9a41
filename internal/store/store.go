// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Store wraps SQLite access for session data.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store := &Store{db: db, log: logger.With("component", "store")}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			store.log.Warn("close after failed migration", "err", cerr)
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_bound_ms INTEGER NOT NULL,
			active_ms INTEGER NOT NULL,
			double_threshold_ms REAL NOT NULL,
			clicks INTEGER NOT NULL,
			doubles INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			cps REAL NOT NULL,
			mean_delay_ms REAL NOT NULL,
			stddev_ms REAL NOT NULL,
			cv REAL NOT NULL,
			consistency TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_events (
			session_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			ts TEXT NOT NULL,
			delay_ms REAL NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY (session_id, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_kind ON sessions(kind);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a closed session, its summary row and its events.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord, agg model.SessionAggregate) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				s.log.Warn("rollback insert", "uuid", rec.ID, "err", rerr)
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, name, kind, started_at, ended_at, duration_bound_ms, active_ms, double_threshold_ms,
			clicks, doubles, duration_ms, cps, mean_delay_ms, stddev_ms, cv, consistency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		string(rec.Kind),
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.DurationBound.Milliseconds(),
		rec.ActiveDuration.Milliseconds(),
		rec.DoubleThresholdMs,
		agg.Clicks,
		agg.Doubles,
		agg.DurationMs,
		agg.CPS,
		agg.MeanDelayMs,
		agg.StdDevMs,
		agg.CV,
		agg.Consistency,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Events) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_events (session_id, idx, ts, delay_ms, label) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				s.log.Warn("close statement", "err", cerr)
			}
		}()
		for _, ev := range rec.Events {
			if _, err := stmt.ExecContext(ctx, id, ev.Index, formatTime(ev.Timestamp), ev.DelayMs, ev.Label); err != nil {
				return 0, fmt.Errorf("insert event %d: %w", ev.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Debug("session stored", "id", id, "uuid", rec.ID, "events", len(rec.Events))
	return id, nil
}

const sessionColumns = `id, uuid, name, kind, started_at, ended_at, clicks, doubles, duration_ms, active_ms,
	cps, mean_delay_ms, stddev_ms, cv, consistency`

type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row scanner) (model.SessionAggregate, error) {
	var agg model.SessionAggregate
	var kind, startedAt, endedAt string
	if err := row.Scan(&agg.SessionID, &agg.UUID, &agg.Name, &kind, &startedAt, &endedAt,
		&agg.Clicks, &agg.Doubles, &agg.DurationMs, &agg.ActiveMs,
		&agg.CPS, &agg.MeanDelayMs, &agg.StdDevMs, &agg.CV, &agg.Consistency); err != nil {
		return agg, err
	}
	agg.Kind = model.SessionKind(kind)
	var err error
	if agg.StartedAt, err = parseTime(startedAt); err != nil {
		return agg, err
	}
	if agg.EndedAt, err = parseTime(endedAt); err != nil {
		return agg, err
	}
	return agg, nil
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(cfg.Kind))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, sessionColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.log.Warn("close rows", "err", cerr)
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession loads a stored session with its events.
func (s *Store) GetSession(ctx context.Context, id int64) (model.SessionRecord, model.SessionAggregate, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM sessions WHERE id = ?`, sessionColumns), id)
	agg, err := scanAggregate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionRecord{}, model.SessionAggregate{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.SessionRecord{}, model.SessionAggregate{}, err
	}

	var boundMs int64
	rec := model.SessionRecord{
		ID:        agg.UUID,
		Name:      agg.Name,
		Kind:      agg.Kind,
		StartedAt: agg.StartedAt,
		EndedAt:   agg.EndedAt,
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT duration_bound_ms, double_threshold_ms FROM sessions WHERE id = ?`, id,
	).Scan(&boundMs, &rec.DoubleThresholdMs); err != nil {
		return model.SessionRecord{}, model.SessionAggregate{}, err
	}
	rec.DurationBound = time.Duration(boundMs) * time.Millisecond
	rec.ActiveDuration = time.Duration(agg.ActiveMs) * time.Millisecond

	events, err := s.ListEvents(ctx, id)
	if err != nil {
		return model.SessionRecord{}, model.SessionAggregate{}, err
	}
	rec.Events = events
	return rec, agg, nil
}

// ListEvents returns a session's events in recording order.
func (s *Store) ListEvents(ctx context.Context, sessionID int64) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, ts, delay_ms, label FROM session_events WHERE session_id = ? ORDER BY idx ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.log.Warn("close rows", "err", cerr)
		}
	}()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var ts string
		if err := rows.Scan(&ev.Index, &ts, &ev.DelayMs, &ev.Label); err != nil {
			return nil, err
		}
		if ev.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// LatestSessionID returns the most recently ended session, optionally of one kind.
func (s *Store) LatestSessionID(ctx context.Context, kind model.SessionKind) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE (? = '' OR kind = ?) ORDER BY ended_at DESC, id DESC LIMIT 1`,
		string(kind), string(kind),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, v)
}
