// Package session records timed action events for one benchmark or clicker run.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/clickpace/internal/model"
)

// ErrEnded is returned by Record once the session is closed or its duration
// bound has elapsed.
var ErrEnded = errors.New("session ended")

// Config configures a Session.
type Config struct {
	Name string
	Kind model.SessionKind
	// DurationBound ends the session this long after the first event. Zero
	// means unbounded.
	DurationBound     time.Duration
	DoubleThresholdMs float64
	Now               func() time.Time
}

// Session is an append-only event log with active-time accounting.
// It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id     string
	cfg    Config
	now    func() time.Time
	events []model.Event

	createdAt time.Time
	closedAt  time.Time
	startedAt time.Time
	endedAt   time.Time
	closed    bool

	openedAt    time.Time
	active      bool
	activeSince time.Time
	activeTotal time.Duration
}

// New creates a session. Timing starts with the first recorded event.
func New(cfg Config) *Session {
	if cfg.DoubleThresholdMs <= 0 {
		cfg.DoubleThresholdMs = model.DefaultDoubleThresholdMs
	}
	if cfg.Kind == "" {
		cfg.Kind = model.KindBenchmark
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		now:       now,
		createdAt: now(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Start marks the session as actively recording. Calling it while already
// active does nothing.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	now := s.now()
	if s.openedAt.IsZero() {
		s.openedAt = now
	}
	s.active = true
	s.activeSince = now
}

// Stop accumulates the time since Start into the active total. Calling it
// while inactive does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(s.now())
}

func (s *Session) stopLocked(now time.Time) {
	if !s.active {
		return
	}
	if d := now.Sub(s.activeSince); d > 0 {
		s.activeTotal += d
	}
	s.active = false
}

// Active reports whether Start is currently open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ActiveDuration returns the accumulated active time, including the open
// interval when active.
func (s *Session) ActiveDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.activeTotal
	if s.active {
		if d := s.now().Sub(s.activeSince); d > 0 {
			total += d
		}
	}
	return total
}

// CreatedAt returns when the session was constructed.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// OpenedAt returns the first Start time, zero if Start was never called.
func (s *Session) OpenedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openedAt
}

// Record appends an event stamped with the current time.
func (s *Session) Record(label string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(s.now(), label)
}

// RecordAt appends an event at t. Timestamps that do not advance past the
// previous event are nudged forward by one nanosecond.
func (s *Session) RecordAt(t time.Time, label string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(t, label)
}

func (s *Session) recordLocked(t time.Time, label string) (model.Event, error) {
	if s.closed {
		return model.Event{}, ErrEnded
	}
	if s.expiredLocked(t) {
		s.endLocked(s.startedAt.Add(s.cfg.DurationBound))
		return model.Event{}, ErrEnded
	}
	ev := model.Event{Index: len(s.events) + 1, Timestamp: t, Label: label}
	if n := len(s.events); n > 0 {
		prev := s.events[n-1].Timestamp
		if !t.After(prev) {
			t = prev.Add(time.Nanosecond)
			ev.Timestamp = t
		}
		ev.DelayMs = durationMs(t.Sub(prev))
	} else {
		s.startedAt = t
	}
	s.events = append(s.events, ev)
	return ev, nil
}

// Expired reports whether the duration bound has elapsed at now, ending the
// session if so.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	if s.expiredLocked(now) {
		s.endLocked(s.startedAt.Add(s.cfg.DurationBound))
		return true
	}
	return false
}

func (s *Session) expiredLocked(now time.Time) bool {
	if s.cfg.DurationBound <= 0 || s.startedAt.IsZero() {
		return false
	}
	return now.Sub(s.startedAt) >= s.cfg.DurationBound
}

// Remaining returns the time left before the bound elapses. Unbounded or
// unstarted sessions report the full bound.
func (s *Session) Remaining(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.DurationBound <= 0 {
		return 0
	}
	if s.startedAt.IsZero() {
		return s.cfg.DurationBound
	}
	if s.closed {
		return 0
	}
	left := s.cfg.DurationBound - now.Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Close ends the session at the current time and finalizes any open Start.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.stopLocked(now)
	s.closedAt = now
	if s.closed {
		return
	}
	if s.expiredLocked(now) {
		now = s.startedAt.Add(s.cfg.DurationBound)
	}
	s.endLocked(now)
}

func (s *Session) endLocked(t time.Time) {
	s.closed = true
	if s.startedAt.IsZero() {
		return
	}
	if n := len(s.events); n > 0 && t.Before(s.events[n-1].Timestamp) {
		t = s.events[n-1].Timestamp
	}
	s.endedAt = t
}

// Ended reports whether the session is closed.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Started reports whether any event was recorded.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.startedAt.IsZero()
}

// Times returns the start and end timestamps; either may be zero.
func (s *Session) Times() (time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.endedAt
}

// Len returns the number of recorded events.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a copy of the recorded events.
func (s *Session) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

// DoubleCount counts events after the first whose delay is under the double
// threshold.
func (s *Session) DoubleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countDoubles(s.events, s.cfg.DoubleThresholdMs)
}

// CPS returns events per second over the closed session span.
func (s *Session) CPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() || s.endedAt.IsZero() {
		return 0
	}
	elapsed := s.endedAt.Sub(s.startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(s.events)) / elapsed
}

// Snapshot returns a snapshot suitable for analytics and storage.
func (s *Session) Snapshot() model.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activeTotal
	closedAt := s.closedAt
	if s.active || closedAt.IsZero() {
		now := s.now()
		if d := now.Sub(s.activeSince); s.active && d > 0 {
			active += d
		}
		closedAt = now
	}
	return model.SessionRecord{
		ID:                s.id,
		Name:              s.cfg.Name,
		Kind:              s.cfg.Kind,
		CreatedAt:         s.createdAt,
		ClosedAt:          closedAt,
		StartedAt:         s.startedAt,
		EndedAt:           s.endedAt,
		DurationBound:     s.cfg.DurationBound,
		ActiveDuration:    active,
		DoubleThresholdMs: s.cfg.DoubleThresholdMs,
		Events:            append([]model.Event(nil), s.events...),
	}
}

// Rows builds the detailed per-event export view of rec.
func Rows(rec model.SessionRecord) []model.EventRow {
	threshold := rec.DoubleThresholdMs
	if threshold <= 0 {
		threshold = model.DefaultDoubleThresholdMs
	}
	rows := make([]model.EventRow, 0, len(rec.Events))
	for i, ev := range rec.Events {
		class := model.ClassSingle
		if i > 0 && ev.DelayMs < threshold {
			class = model.ClassDouble
		}
		rows = append(rows, model.EventRow{
			Index:          ev.Index,
			Timestamp:      ev.Timestamp,
			RelativeMs:     durationMs(ev.Timestamp.Sub(rec.StartedAt)),
			DelayMs:        ev.DelayMs,
			Label:          ev.Label,
			Classification: class,
		})
	}
	return rows
}

func countDoubles(events []model.Event, thresholdMs float64) int {
	count := 0
	for i := 1; i < len(events); i++ {
		if events[i].DelayMs < thresholdMs {
			count++
		}
	}
	return count
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
