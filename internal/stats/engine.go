package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

// Activity is the wall-clock accounting of a clicker run.
type Activity struct {
	Session time.Duration
	Active  time.Duration
}

// ActivityOf measures rec from creation to close so idle time before the
// first press counts. Records without a lifetime, such as ones loaded from
// the store, fall back to the first and last event.
func ActivityOf(rec model.SessionRecord) Activity {
	act := Activity{Active: rec.ActiveDuration}
	if !rec.CreatedAt.IsZero() && rec.ClosedAt.After(rec.CreatedAt) {
		act.Session = rec.ClosedAt.Sub(rec.CreatedAt)
	} else if !rec.StartedAt.IsZero() && !rec.EndedAt.IsZero() {
		act.Session = rec.EndedAt.Sub(rec.StartedAt)
	}
	return act
}

// EngineReport summarizes the delays a generator produced during a run.
type EngineReport struct {
	Total               int     `json:"total" yaml:"total"`
	AvgCPS              float64 `json:"avg_cps" yaml:"avg_cps"`
	MinCPS              float64 `json:"min_cps" yaml:"min_cps"`
	MaxCPS              float64 `json:"max_cps" yaml:"max_cps"`
	MedianCPS           float64 `json:"median_cps" yaml:"median_cps"`
	P10Ms               float64 `json:"p10_delay_ms" yaml:"p10_delay_ms"`
	P50Ms               float64 `json:"p50_delay_ms" yaml:"p50_delay_ms"`
	P90Ms               float64 `json:"p90_delay_ms" yaml:"p90_delay_ms"`
	MinDelayMs          float64 `json:"min_delay_ms" yaml:"min_delay_ms"`
	MaxDelayMs          float64 `json:"max_delay_ms" yaml:"max_delay_ms"`
	AvgDelayMs          float64 `json:"avg_delay_ms" yaml:"avg_delay_ms"`
	Variance            float64 `json:"variance" yaml:"variance"`
	VarianceOK          bool    `json:"variance_ok" yaml:"variance_ok"`
	PatternBreaks       int     `json:"pattern_breaks" yaml:"pattern_breaks"`
	VarianceAdjustments int     `json:"variance_adjustments" yaml:"variance_adjustments"`
	SessionSeconds      float64 `json:"session_seconds" yaml:"session_seconds"`
	ActiveSeconds       float64 `json:"active_seconds" yaml:"active_seconds"`
	IdleSeconds         float64 `json:"idle_seconds" yaml:"idle_seconds"`
	UptimePct           float64 `json:"uptime_pct" yaml:"uptime_pct"`
	CeilingCPS          float64 `json:"ceiling_cps" yaml:"ceiling_cps"`
	CeilingRespected    bool    `json:"ceiling_respected" yaml:"ceiling_respected"`
}

// ComputeEngine builds an EngineReport from a generator's delay history and
// counters. It reports false when no delays were produced.
func ComputeEngine(delays []float64, diag model.EngineDiagnostics, act Activity, ceilingCPS float64) (EngineReport, bool) {
	if len(delays) == 0 {
		return EngineReport{}, false
	}
	sorted := append([]float64(nil), delays...)
	sort.Float64s(sorted)
	p10, _ := Percentile(sorted, 10)
	p50, _ := Percentile(sorted, 50)
	p90, _ := Percentile(sorted, 90)
	avg := mean(delays)

	r := EngineReport{
		Total:               diag.Actions,
		P10Ms:               p10,
		P50Ms:               p50,
		P90Ms:               p90,
		MinDelayMs:          sorted[0],
		MaxDelayMs:          sorted[len(sorted)-1],
		AvgDelayMs:          avg,
		Variance:            diag.Variance,
		VarianceOK:          diag.VarianceOK,
		PatternBreaks:       diag.PatternBreaks,
		VarianceAdjustments: diag.VarianceAdjustments,
		CeilingCPS:          ceilingCPS,
	}
	if r.Total == 0 {
		r.Total = len(delays)
	}
	if avg > 0 {
		r.AvgCPS = 1000.0 / avg
	}
	if r.MaxDelayMs > 0 {
		r.MinCPS = 1000.0 / r.MaxDelayMs
	}
	if r.MinDelayMs > 0 {
		r.MaxCPS = 1000.0 / r.MinDelayMs
	}
	if p50 > 0 {
		r.MedianCPS = 1000.0 / p50
	}

	r.SessionSeconds = act.Session.Seconds()
	r.ActiveSeconds = act.Active.Seconds()
	if idle := r.SessionSeconds - r.ActiveSeconds; idle > 0 {
		r.IdleSeconds = idle
	}
	if r.SessionSeconds > 0 {
		r.UptimePct = r.ActiveSeconds / r.SessionSeconds * 100
	}
	r.CeilingRespected = ceilingCPS <= 0 || r.MaxCPS <= ceilingCPS
	return r, true
}
