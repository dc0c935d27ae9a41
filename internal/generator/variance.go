package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/clickpace/internal/sampler"
)

const (
	// DefaultVarianceCooldown is the minimum wall-clock gap between checks.
	DefaultVarianceCooldown = 15 * time.Second
	// DefaultVarianceSamples is both the minimum sample count and the window.
	DefaultVarianceSamples = 15
	// DefaultVarianceDecay shrinks the adjustment when spread is healthy.
	DefaultVarianceDecay = 0.8
)

// VarianceMonitor periodically measures the spread of recent delays and
// maintains a multiplicative adjustment that pushes the generator toward more
// variance when the spread collapses.
type VarianceMonitor struct {
	cooldown   time.Duration
	samples    int
	threshold  float64
	decay      float64
	rnd        *rand.Rand
	lastCheck  time.Time
	adjustment float64
	adjusted   int
}

// NewVarianceMonitor returns a monitor whose first check is due one cooldown
// after start.
func NewVarianceMonitor(rnd *rand.Rand, threshold float64, start time.Time) *VarianceMonitor {
	return &VarianceMonitor{
		cooldown:  DefaultVarianceCooldown,
		samples:   DefaultVarianceSamples,
		threshold: threshold,
		decay:     DefaultVarianceDecay,
		rnd:       rnd,
		lastCheck: start,
	}
}

// Due reports whether a check would run at now with available samples.
func (m *VarianceMonitor) Due(now time.Time, available int) bool {
	return now.Sub(m.lastCheck) >= m.cooldown && available >= m.samples
}

// MaybeAdjust re-evaluates recent (oldest first) when the cooldown has
// elapsed and enough samples exist. It reports whether a check ran.
func (m *VarianceMonitor) MaybeAdjust(now time.Time, recent []float64) bool {
	if !m.Due(now, len(recent)) {
		return false
	}
	window := recent[len(recent)-m.samples:]
	if populationVariance(window) < m.threshold {
		m.adjustment = sampler.Uniform(m.rnd, 0.1, 0.2)
		m.adjusted++
	} else {
		m.adjustment *= m.decay
	}
	m.lastCheck = now
	return true
}

// Adjustment returns the current multiplicative adjustment.
func (m *VarianceMonitor) Adjustment() float64 {
	return m.adjustment
}

// Adjustments returns how many times the adjustment was raised.
func (m *VarianceMonitor) Adjustments() int {
	return m.adjusted
}
