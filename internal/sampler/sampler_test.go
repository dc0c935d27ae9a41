package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroFirstSource yields a zero on its first Int63 call.
type zeroFirstSource struct {
	calls int
	inner rand.Source
}

func (s *zeroFirstSource) Int63() int64 {
	s.calls++
	if s.calls == 1 {
		return 0
	}
	return s.inner.Int63()
}

func (s *zeroFirstSource) Seed(seed int64) { s.inner.Seed(seed) }

func TestGaussianMoments(t *testing.T) {
	rnd := NewRand(42)
	const n = 50000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := Gaussian(rnd, 108, 18)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	stddev := math.Sqrt(sumSq/n - mean*mean)
	assert.InDelta(t, 108, mean, 0.5)
	assert.InDelta(t, 18, stddev, 0.5)
}

func TestGaussianRedrawsZero(t *testing.T) {
	rnd := rand.New(&zeroFirstSource{inner: rand.NewSource(7)})
	v := Gaussian(rnd, 0, 1)
	require.False(t, math.IsInf(v, 0))
	require.False(t, math.IsNaN(v))
}

func TestWeibullNonNegative(t *testing.T) {
	rnd := NewRand(9)
	var sum float64
	const n = 20000
	for i := 0; i < n; i++ {
		v := Weibull(rnd, 100, 2.5)
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	// Mean of Weibull(100, 2.5) is 100*Gamma(1.4).
	assert.InDelta(t, 100*math.Gamma(1.4), sum/n, 1.5)
}

func TestWeibullZeroDraw(t *testing.T) {
	rnd := rand.New(&zeroFirstSource{inner: rand.NewSource(1)})
	assert.Equal(t, 0.0, Weibull(rnd, 100, 2.5))
}

func TestIntRangeInclusive(t *testing.T) {
	rnd := NewRand(3)
	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		v := IntRange(rnd, -15, 16)
		require.GreaterOrEqual(t, v, -15)
		require.LessOrEqual(t, v, 16)
		seen[v] = true
	}
	assert.True(t, seen[-15])
	assert.True(t, seen[16])
	assert.Equal(t, 5, IntRange(rnd, 5, 5))
}

func TestUniformBounds(t *testing.T) {
	rnd := NewRand(11)
	for i := 0; i < 1000; i++ {
		v := Uniform(rnd, 0.85, 1.15)
		require.GreaterOrEqual(t, v, 0.85)
		require.Less(t, v, 1.15)
	}
}

func TestSameSeedSameStream(t *testing.T) {
	a, b := NewRand(5), NewRand(5)
	for i := 0; i < 10; i++ {
		require.Equal(t, Gaussian(a, 0, 1), Gaussian(b, 0, 1))
	}
}
