package stats

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/clickpace/internal/model"
)

func TestPercentileRanks(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	cases := map[float64]float64{
		0:   10,
		10:  10,
		25:  20,
		50:  50,
		90:  90,
		100: 100,
		150: 100,
	}
	for p, want := range cases {
		got, ok := Percentile(sorted, p)
		require.True(t, ok)
		assert.Equal(t, want, got, "p%v", p)
	}
	_, ok := Percentile(nil, 50)
	assert.False(t, ok)
}

func TestPercentilesSortsCopy(t *testing.T) {
	delays := []float64{100, 10, 90, 20, 80, 30, 70, 40, 60, 50}
	got := Percentiles(delays, 10, 50, 90)
	want := []PercentileRow{{P: 10, DelayMs: 10}, {P: 50, DelayMs: 50}, {P: 90, DelayMs: 90}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("percentiles mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 100.0, delays[0], "input must not be reordered")
	assert.Nil(t, Percentiles(nil, 50))
}

func TestDistributionBuckets(t *testing.T) {
	delays := []float64{0, 29.9, 30, 49, 50, 99, 100, 149, 150, 199, 200, 299, 300, 5000}
	got := Distribution(delays)
	counts := make([]int, len(got))
	for i, b := range got {
		counts[i] = b.Count
	}
	assert.Equal(t, []int{2, 2, 2, 2, 2, 2, 2}, counts)
	assert.True(t, got[len(got)-1].Open)
	assert.Equal(t, 30.0, got[0].HighMs)
	assert.InDelta(t, 100.0/7, got[3].Percent, 1e-9)

	empty := Distribution(nil)
	require.Len(t, empty, 7)
	for _, b := range empty {
		assert.Zero(t, b.Count)
	}
}

func TestDetectBursts(t *testing.T) {
	got := DetectBursts([]float64{20, 25, 15, 200}, DefaultBurstThresholdMs)
	assert.Equal(t, BurstSummary{Count: 1, Longest: 3, AverageLength: 3}, got)

	got = DetectBursts([]float64{20, 25, 15, 200, 20, 30, 18}, DefaultBurstThresholdMs)
	assert.Equal(t, 3, got.Longest)
	assert.Equal(t, 2, got.Count, "the trailing run also qualifies")

	got = DetectBursts([]float64{20, 200, 10, 300, 45, 44}, DefaultBurstThresholdMs)
	assert.Equal(t, BurstSummary{Count: 1, Longest: 2, AverageLength: 2}, got)

	assert.Equal(t, BurstSummary{}, DetectBursts(nil, DefaultBurstThresholdMs))
	assert.Equal(t, BurstSummary{}, DetectBursts([]float64{10}, DefaultBurstThresholdMs))
}

func TestConsistencyRatings(t *testing.T) {
	label, cv := Consistency(withCV(100, 10, 40))
	assert.Equal(t, ConsistencyExcellent, label)
	assert.InDelta(t, 10, cv, 1e-9)

	label, cv = Consistency(withCV(100, 50, 40))
	assert.Equal(t, ConsistencyInconsistent, label)
	assert.InDelta(t, 50, cv, 1e-9)

	label, _ = Consistency(withCV(100, 20, 40))
	assert.Equal(t, ConsistencyGood, label)
	label, _ = Consistency(withCV(100, 30, 40))
	assert.Equal(t, ConsistencyFair, label)

	label, _ = Consistency([]float64{100})
	assert.Equal(t, NotAvailable, label)
	label, _ = Consistency(nil)
	assert.Equal(t, NotAvailable, label)
}

// withCV builds an even-length sequence alternating around mean whose sample
// coefficient of variation is exactly cv percent.
func withCV(mean, cv float64, n int) []float64 {
	sd := mean * cv / 100
	dev := sd * math.Sqrt(float64(n-1)/float64(n))
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = mean + dev
		} else {
			out[i] = mean - dev
		}
	}
	return out
}

func TestComputeDelaysEmptyAndSingle(t *testing.T) {
	assert.NotPanics(t, func() {
		r := ComputeDelays(nil)
		assert.False(t, r.DelaysAvailable)
		assert.Equal(t, NotAvailable, r.Consistency)
		assert.Nil(t, r.Percentiles)
		assert.Zero(t, r.CPS)
	})
	r := ComputeDelays([]float64{125})
	assert.True(t, r.DelaysAvailable)
	assert.Equal(t, NotAvailable, r.Consistency)
	assert.Zero(t, r.Delays.StdDevMs)
	assert.InDelta(t, 8.0, r.CPS, 1e-9)
}

func TestComputeDelaysCountsDoubles(t *testing.T) {
	r := ComputeDelays([]float64{20, 25, 15, 200, 49.9, 50, 120})
	assert.Equal(t, 7, r.Clicks)
	assert.Equal(t, 4, r.Doubles)
	assert.Equal(t, 3, r.Singles)

	r = ComputeDelays([]float64{100, 120})
	assert.Zero(t, r.Doubles)
	assert.Equal(t, 2, r.Singles)
}

func TestPercentileIsOneBased(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	got, ok := Percentile(sorted, 90)
	require.True(t, ok)
	assert.Equal(t, sorted[8], got, "rank 9 of 10")
}

func sessionFromGaps(start time.Time, gaps []time.Duration, end time.Time) model.SessionRecord {
	rec := model.SessionRecord{Name: "t", Kind: model.KindBenchmark, StartedAt: start, EndedAt: end}
	ts := start
	for i, gap := range gaps {
		ts = ts.Add(gap)
		ev := model.Event{Index: i + 1, Timestamp: ts, Label: "LEFT"}
		if i > 0 {
			ev.DelayMs = float64(gap) / float64(time.Millisecond)
		}
		rec.Events = append(rec.Events, ev)
	}
	return rec
}

func TestComputeSession(t *testing.T) {
	start := time.Unix(1000, 0)
	gaps := []time.Duration{0, 100 * time.Millisecond, 40 * time.Millisecond, 30 * time.Millisecond, 200 * time.Millisecond}
	rec := sessionFromGaps(start, gaps, start.Add(2*time.Second))

	r := Compute(rec)
	assert.Equal(t, 5, r.Clicks)
	assert.Equal(t, 2, r.Doubles)
	assert.Equal(t, 3, r.Singles)
	assert.InDelta(t, 2.5, r.CPS, 1e-9)
	assert.InDelta(t, 2.0, r.DurationSeconds, 1e-9)
	assert.Equal(t, 4, r.Delays.Count)
	assert.Equal(t, 30.0, r.Delays.MinMs)
	assert.Equal(t, 200.0, r.Delays.MaxMs)
	assert.Equal(t, BurstSummary{Count: 1, Longest: 2, AverageLength: 2}, r.Bursts)
	assert.Equal(t, 1, r.SegmentSeconds)
	if diff := cmp.Diff([]Segment{{Index: 1, StartS: 0, EndS: 1, Clicks: 5, CPS: 5}}, r.Trend); diff != "" {
		t.Fatalf("trend mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeUnstartedSession(t *testing.T) {
	r := Compute(model.SessionRecord{})
	assert.Zero(t, r.Clicks)
	assert.Zero(t, r.CPS)
	assert.Nil(t, r.Trend)
	assert.Equal(t, NotAvailable, r.Consistency)
}

func TestTrendSegments(t *testing.T) {
	start := time.Unix(0, 0)
	var events []model.Event
	add := func(offset time.Duration) {
		events = append(events, model.Event{Index: len(events) + 1, Timestamp: start.Add(offset)})
	}
	for i := 0; i < 10; i++ {
		add(time.Duration(i) * 100 * time.Millisecond)
	}
	for i := 0; i < 4; i++ {
		add(10*time.Second + time.Duration(i)*250*time.Millisecond)
	}
	add(25*time.Second + 500*time.Millisecond)

	size, segs := Trend(events, start, start.Add(30*time.Second))
	assert.Equal(t, 3, size)
	want := []Segment{
		{Index: 1, StartS: 0, EndS: 3, Clicks: 10, CPS: 10.0 / 3},
		{Index: 4, StartS: 9, EndS: 12, Clicks: 4, CPS: 4.0 / 3},
		{Index: 9, StartS: 24, EndS: 27, Clicks: 1, CPS: 1.0 / 3},
	}
	if diff := cmp.Diff(want, segs); diff != "" {
		t.Fatalf("trend mismatch (-want +got):\n%s", diff)
	}

	size, segs = Trend(events[:1], start, start.Add(time.Second))
	assert.Zero(t, size)
	assert.Nil(t, segs)
}

func TestTrendShortSession(t *testing.T) {
	start := time.Unix(0, 0)
	events := []model.Event{
		{Index: 1, Timestamp: start},
		{Index: 2, Timestamp: start.Add(300 * time.Millisecond)},
	}
	size, segs := Trend(events, start, start.Add(500*time.Millisecond))
	assert.Equal(t, 1, size)
	require.Len(t, segs, 1)
	assert.Equal(t, 2, segs[0].Clicks)
}

func TestSummarize(t *testing.T) {
	start := time.Unix(5000, 0)
	rec := sessionFromGaps(start, []time.Duration{0, 100 * time.Millisecond, 120 * time.Millisecond}, start.Add(time.Second))
	rec.ID = "abc"
	rec.ActiveDuration = 900 * time.Millisecond
	agg := Summarize(rec)
	assert.Equal(t, "abc", agg.UUID)
	assert.Equal(t, 3, agg.Clicks)
	assert.Equal(t, int64(1000), agg.DurationMs)
	assert.Equal(t, int64(900), agg.ActiveMs)
	assert.InDelta(t, 3.0, agg.CPS, 1e-9)
	assert.InDelta(t, 110.0, agg.MeanDelayMs, 1e-9)
	assert.Equal(t, ConsistencyExcellent, agg.Consistency)
}
