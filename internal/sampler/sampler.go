// Package sampler provides the random distributions used by the delay engine.
package sampler

import (
	"math"
	"math/rand"
	"time"
)

// NewRand returns a random source for the given seed. A zero seed draws one
// from the current time.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Gaussian samples N(mean, stddev) with the Box-Muller transform.
func Gaussian(rnd *rand.Rand, mean, stddev float64) float64 {
	u1 := rnd.Float64()
	for u1 == 0 {
		u1 = rnd.Float64()
	}
	u2 := rnd.Float64()
	z := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
	return mean + stddev*z
}

// Weibull samples a Weibull(scale, shape) value by inverting the CDF.
func Weibull(rnd *rand.Rand, scale, shape float64) float64 {
	u := rnd.Float64()
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	return scale * math.Pow(-math.Log(1-u), 1/shape)
}

// Uniform samples a float in [lo, hi).
func Uniform(rnd *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rnd.Float64()
}

// IntRange samples an integer in [lo, hi], both ends inclusive.
func IntRange(rnd *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rnd.Intn(hi-lo+1)
}

// Chance reports true with probability p.
func Chance(rnd *rand.Rand, p float64) bool {
	return rnd.Float64() < p
}
