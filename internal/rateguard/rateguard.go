// Package rateguard enforces a hard ceiling on the instantaneous action rate.
package rateguard

import "time"

const (
	// DefaultWindow is the span of timestamps considered for the rate.
	DefaultWindow = time.Second
	// DefaultCapacity bounds the number of remembered timestamps.
	DefaultCapacity = 20
	// DefaultCeiling is the hard actions-per-second limit.
	DefaultCeiling = 12.0
	// DefaultThreshold is the rate at which the guard starts adding delay.
	DefaultThreshold = 11.0
	// DefaultSafetyDelay is the extra wait returned near the ceiling.
	DefaultSafetyDelay = 60 * time.Millisecond
)

// Config tunes a Guard. Zero fields take the defaults.
type Config struct {
	Window      time.Duration
	Capacity    int
	Ceiling     float64
	Threshold   float64
	SafetyDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Ceiling <= 0 {
		c.Ceiling = DefaultCeiling
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.SafetyDelay <= 0 {
		c.SafetyDelay = DefaultSafetyDelay
	}
	return c
}

// Guard keeps a sliding window of recent action timestamps.
// It is not safe for concurrent use.
type Guard struct {
	cfg   Config
	times []time.Time
}

// New returns a Guard with the given config.
func New(cfg Config) *Guard {
	cfg = cfg.withDefaults()
	return &Guard{cfg: cfg, times: make([]time.Time, 0, cfg.Capacity)}
}

// Config returns the effective configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// Observe records an action at t. The oldest timestamp is dropped once the
// window holds Capacity entries.
func (g *Guard) Observe(t time.Time) {
	if len(g.times) == g.cfg.Capacity {
		copy(g.times, g.times[1:])
		g.times = g.times[:len(g.times)-1]
	}
	g.times = append(g.times, t)
}

// RequiredSafetyDelay evicts timestamps older than the window and returns the
// extra wait needed before the next action at now.
func (g *Guard) RequiredSafetyDelay(now time.Time) time.Duration {
	g.evict(now)
	if len(g.times) < 2 {
		return 0
	}
	span := now.Sub(g.times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	if float64(len(g.times))/span >= g.cfg.Threshold {
		return g.cfg.SafetyDelay
	}
	return 0
}

// Rate returns the current actions-per-second estimate at now.
func (g *Guard) Rate(now time.Time) float64 {
	g.evict(now)
	if len(g.times) < 2 {
		return 0
	}
	span := now.Sub(g.times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(g.times)) / span
}

// Len returns the number of timestamps currently in the window.
func (g *Guard) Len() int {
	return len(g.times)
}

// Reset forgets all timestamps.
func (g *Guard) Reset() {
	g.times = g.times[:0]
}

func (g *Guard) evict(now time.Time) {
	drop := 0
	for drop < len(g.times) && now.Sub(g.times[drop]) > g.cfg.Window {
		drop++
	}
	if drop == 0 {
		return
	}
	g.times = append(g.times[:0], g.times[drop:]...)
}
