// Package generator produces human-like inter-click delays.
//
// A Generator draws a base delay from a Gaussian/Weibull mixture and shapes
// it with per-instance state: a fixed personal baseline, a momentum factor
// tied to the current streak, a slowly wandering drift, a cyclic rhythm and a
// variance feedback loop. Every delay is clamped to [MinDelayMs, MaxDelayMs].
// A Generator owns its random source and is not safe for concurrent use; one
// goroutine should own it for its whole lifetime.
package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/rateguard"
	"github.com/verte-zerg/clickpace/internal/sampler"
)

const (
	// DefaultMinDelayMs caps the rate just under 12 actions per second.
	DefaultMinDelayMs = 84.0
	// DefaultMaxDelayMs keeps the rate at or above 7 actions per second.
	DefaultMaxDelayMs = 143.0
	// DefaultVarianceThreshold is the spread below which timing counts as flat.
	DefaultVarianceThreshold = 120.0
	// DefaultPatternWindow is the number of recent delays checked for flatness.
	DefaultPatternWindow = 20
	// DefaultRecentCapacity bounds the recent-delay ring.
	DefaultRecentCapacity = 50

	gaussianWeight = 0.70
	gaussianMean   = 108.0
	gaussianStdDev = 18.0
	weibullScale   = 100.0
	weibullShape   = 2.5

	driftStep   = 0.003
	driftBound  = 0.18
	rhythmAmpMs = 14.0

	holdMeanMs   = 26.0
	holdStdDevMs = 8.0
)

// Config tunes a Generator. Zero fields take the defaults.
type Config struct {
	MinDelayMs        float64
	MaxDelayMs        float64
	VarianceThreshold float64
	PatternWindow     int
	RecentCapacity    int
	// KeepHistory retains every produced delay for final reporting. Memory
	// grows linearly with the number of delays.
	KeepHistory bool
	// Seed fixes the random stream; zero seeds from the clock.
	Seed int64
	// Now overrides the wall clock used by the variance cooldown.
	Now   func() time.Time
	Guard rateguard.Config
}

// FromClicker maps user-facing clicker settings onto a generator Config.
func FromClicker(cfg model.ClickerConfig) Config {
	return Config{
		MinDelayMs:        cfg.MinDelayMs,
		MaxDelayMs:        cfg.MaxDelayMs,
		VarianceThreshold: cfg.VarianceThreshold,
		KeepHistory:       cfg.KeepHistory,
		Seed:              cfg.Seed,
		Guard: rateguard.Config{
			Ceiling:     cfg.CeilingCPS,
			Threshold:   cfg.NearCeilingCPS,
			SafetyDelay: cfg.SafetyDelay,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.MinDelayMs <= 0 {
		c.MinDelayMs = DefaultMinDelayMs
	}
	if c.MaxDelayMs <= 0 {
		c.MaxDelayMs = DefaultMaxDelayMs
	}
	if c.VarianceThreshold <= 0 {
		c.VarianceThreshold = DefaultVarianceThreshold
	}
	if c.PatternWindow <= 0 {
		c.PatternWindow = DefaultPatternWindow
	}
	if c.RecentCapacity <= 0 {
		c.RecentCapacity = DefaultRecentCapacity
	}
	if c.RecentCapacity < c.PatternWindow {
		c.RecentCapacity = c.PatternWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Generator produces one delay per action.
type Generator struct {
	cfg Config
	rnd *rand.Rand

	recent  *ring
	history []float64

	baseline    float64
	phase       float64
	drift       float64
	consecutive int
	actions     int

	monitor       *VarianceMonitor
	guard         *rateguard.Guard
	patternBreaks int
}

// New returns a Generator with a freshly drawn personal baseline.
func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	return NewWithRand(cfg, sampler.NewRand(cfg.Seed))
}

// NewWithRand returns a Generator that draws from rnd.
func NewWithRand(cfg Config, rnd *rand.Rand) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:      cfg,
		rnd:      rnd,
		recent:   newRing(cfg.RecentCapacity),
		baseline: sampler.Uniform(rnd, 0.88, 1.12),
		monitor:  NewVarianceMonitor(rnd, cfg.VarianceThreshold, cfg.Now()),
		guard:    rateguard.New(cfg.Guard),
	}
}

// NextDelay returns the wait in milliseconds before the next action.
func (g *Generator) NextDelay() float64 {
	if now := g.cfg.Now(); g.monitor.Due(now, g.recent.len()) {
		g.monitor.MaybeAdjust(now, g.recent.last(DefaultVarianceSamples))
	}

	var base float64
	if sampler.Chance(g.rnd, gaussianWeight) {
		base = math.Abs(sampler.Gaussian(g.rnd, gaussianMean, gaussianStdDev))
	} else {
		base = sampler.Weibull(g.rnd, weibullScale, weibullShape)
	}

	base *= g.baseline
	base *= sampler.Uniform(g.rnd, 0.85, 1.15)
	base *= g.momentum()

	g.drift += sampler.Uniform(g.rnd, -driftStep, driftStep)
	g.drift = clamp(g.drift, -driftBound, driftBound)
	base *= 1 + g.drift

	g.phase = math.Mod(g.phase+sampler.Uniform(g.rnd, 0.25, 0.50), 2*math.Pi)
	base += math.Sin(g.phase) * rhythmAmpMs

	base *= 1 + g.monitor.Adjustment()
	base += float64(sampler.IntRange(g.rnd, -15, 16))

	delay := g.clampDelay(base)
	if g.recent.len() >= g.cfg.PatternWindow {
		if g.recent.variance(g.cfg.PatternWindow) < g.cfg.VarianceThreshold {
			delay = g.clampDelay(delay * sampler.Uniform(g.rnd, 0.7, 1.3))
			g.patternBreaks++
		}
	}

	g.recent.push(delay)
	if g.cfg.KeepHistory {
		g.history = append(g.history, delay)
	}
	return delay
}

// SafetyDelay asks the rate guard for extra wait before the next action.
func (g *Generator) SafetyDelay(now time.Time) time.Duration {
	return g.guard.RequiredSafetyDelay(now)
}

// RecordAction notes an action performed at t and extends the streak.
func (g *Generator) RecordAction(t time.Time) {
	g.guard.Observe(t)
	g.consecutive++
	g.actions++
}

// ResetStreak clears the consecutive-action counter after a break.
func (g *Generator) ResetStreak() {
	g.consecutive = 0
}

// HoldDuration returns how long to keep the button pressed.
func (g *Generator) HoldDuration() time.Duration {
	ms := math.Abs(sampler.Gaussian(g.rnd, holdMeanMs, holdStdDevMs))
	return time.Duration(ms * float64(time.Millisecond))
}

// CurrentCPS estimates the rate from the last ten delays once five exist.
func (g *Generator) CurrentCPS() (float64, bool) {
	if g.recent.len() < 5 {
		return 0, false
	}
	return 1000.0 / g.recent.mean(10), true
}

// RecentVariance returns the population variance of the last fifteen delays
// once at least ten exist.
func (g *Generator) RecentVariance() (float64, bool) {
	if g.recent.len() < 10 {
		return 0, false
	}
	return g.recent.variance(DefaultVarianceSamples), true
}

// History returns a copy of every delay produced when KeepHistory is set.
func (g *Generator) History() []float64 {
	return append([]float64(nil), g.history...)
}

// Recent returns the delays currently held in the ring, oldest first.
func (g *Generator) Recent() []float64 {
	return g.recent.last(g.recent.len())
}

// Diagnostics reports the generator's counters.
func (g *Generator) Diagnostics() model.EngineDiagnostics {
	variance, ok := g.RecentVariance()
	return model.EngineDiagnostics{
		Actions:             g.actions,
		PatternBreaks:       g.patternBreaks,
		VarianceAdjustments: g.monitor.Adjustments(),
		VarianceAdjustment:  g.monitor.Adjustment(),
		Variance:            variance,
		VarianceOK:          ok,
		Baseline:            g.baseline,
		Drift:               g.drift,
		Streak:              g.consecutive,
	}
}

// Bounds returns the clamp interval in milliseconds.
func (g *Generator) Bounds() (float64, float64) {
	return g.cfg.MinDelayMs, g.cfg.MaxDelayMs
}

// CeilingCPS returns the rate guard's hard ceiling.
func (g *Generator) CeilingCPS() float64 {
	return g.guard.Config().Ceiling
}

func (g *Generator) momentum() float64 {
	switch {
	case g.consecutive < 3:
		return sampler.Uniform(g.rnd, 1.05, 1.15)
	case g.consecutive < 8:
		return sampler.Uniform(g.rnd, 0.95, 1.05)
	default:
		return sampler.Uniform(g.rnd, 0.90, 0.98)
	}
}

func (g *Generator) clampDelay(v float64) float64 {
	return clamp(v, g.cfg.MinDelayMs, g.cfg.MaxDelayMs)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
