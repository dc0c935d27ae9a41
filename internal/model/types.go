// Package model defines shared data structures.
package model

import "time"

// SessionKind distinguishes how a session's events were produced.
type SessionKind string

const (
	// KindBenchmark marks sessions captured from a person clicking.
	KindBenchmark SessionKind = "benchmark"
	// KindClicker marks sessions produced by the delay engine.
	KindClicker SessionKind = "clicker"
)

// Event classifications used in detailed exports.
const (
	ClassSingle = "single"
	ClassDouble = "double"
)

// DefaultDoubleThresholdMs separates single from double actions.
const DefaultDoubleThresholdMs = 50.0

// BenchConfig defines benchmark settings.
type BenchConfig struct {
	Name              string
	Duration          time.Duration
	DoubleThresholdMs float64
	Button            string
	StatusEvery       int
}

// ClickerConfig defines delay engine and driver settings.
type ClickerConfig struct {
	MinDelayMs        float64
	MaxDelayMs        float64
	VarianceThreshold float64
	CeilingCPS        float64
	NearCeilingCPS    float64
	SafetyDelay       time.Duration
	PollInterval      time.Duration
	Button            string
	Seed              int64
	KeepHistory       bool
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Kind        SessionKind
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Event is one recorded action. DelayMs is zero for the first event.
type Event struct {
	Index     int
	Timestamp time.Time
	DelayMs   float64
	Label     string
}

// EventRow is the detailed export view of an Event.
type EventRow struct {
	Index          int       `json:"click_number" yaml:"click_number"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	RelativeMs     float64   `json:"relative_time_ms" yaml:"relative_time_ms"`
	DelayMs        float64   `json:"delay_ms" yaml:"delay_ms"`
	Label          string    `json:"button" yaml:"button"`
	Classification string    `json:"click_type" yaml:"click_type"`
}

// SessionRecord is a closed session as handed to analytics and storage.
type SessionRecord struct {
	ID                string
	Name              string
	Kind              SessionKind
	// CreatedAt and ClosedAt bound the wall-clock life of the session,
	// including idle time before the first event. Not persisted.
	CreatedAt         time.Time
	ClosedAt          time.Time
	StartedAt         time.Time
	EndedAt           time.Time
	DurationBound     time.Duration
	ActiveDuration    time.Duration
	DoubleThresholdMs float64
	Events            []Event
}

// Delays returns the inter-event delays, skipping the first event.
func (r SessionRecord) Delays() []float64 {
	if len(r.Events) < 2 {
		return nil
	}
	out := make([]float64, 0, len(r.Events)-1)
	for _, e := range r.Events[1:] {
		out = append(out, e.DelayMs)
	}
	return out
}

// EngineDiagnostics reports the delay engine's internal counters.
type EngineDiagnostics struct {
	Actions             int     `json:"actions" yaml:"actions"`
	PatternBreaks       int     `json:"pattern_breaks" yaml:"pattern_breaks"`
	VarianceAdjustments int     `json:"variance_adjustments" yaml:"variance_adjustments"`
	VarianceAdjustment  float64 `json:"variance_adjustment" yaml:"variance_adjustment"`
	Variance            float64 `json:"variance" yaml:"variance"`
	VarianceOK          bool    `json:"variance_ok" yaml:"variance_ok"`
	Baseline            float64 `json:"baseline" yaml:"baseline"`
	Drift               float64 `json:"drift" yaml:"drift"`
	Streak              int     `json:"streak" yaml:"streak"`
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID   int64
	UUID        string
	Name        string
	Kind        SessionKind
	StartedAt   time.Time
	EndedAt     time.Time
	Clicks      int
	Doubles     int
	DurationMs  int64
	ActiveMs    int64
	CPS         float64
	MeanDelayMs float64
	StdDevMs    float64
	CV          float64
	Consistency string
}
