package stats

import (
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

// NotAvailable labels a statistic that lacks the samples it needs.
const NotAvailable = "N/A"

// DefaultBurstThresholdMs is the delay below which consecutive actions form a burst.
const DefaultBurstThresholdMs = 50.0

// DefaultPercentiles are reported for every delay sequence.
var DefaultPercentiles = []int{10, 25, 50, 75, 90}

// Consistency labels ordered from tightest to loosest spread.
const (
	ConsistencyExcellent    = "Excellent"
	ConsistencyGood         = "Good"
	ConsistencyFair         = "Fair"
	ConsistencyInconsistent = "Inconsistent"
)

// PercentileRow is one row of the percentile table.
type PercentileRow struct {
	P       int     `json:"p" yaml:"p"`
	DelayMs float64 `json:"delay_ms" yaml:"delay_ms"`
}

// Bucket counts delays in [LowMs, HighMs). The last bucket is open ended.
type Bucket struct {
	Label   string  `json:"label" yaml:"label"`
	LowMs   float64 `json:"low_ms" yaml:"low_ms"`
	HighMs  float64 `json:"high_ms,omitempty" yaml:"high_ms,omitempty"`
	Open    bool    `json:"open,omitempty" yaml:"open,omitempty"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// BurstSummary describes runs of consecutive fast delays.
type BurstSummary struct {
	Count         int     `json:"count" yaml:"count"`
	Longest       int     `json:"longest" yaml:"longest"`
	AverageLength float64 `json:"average_length" yaml:"average_length"`
}

// Segment is one slice of the trend table.
type Segment struct {
	Index  int     `json:"segment" yaml:"segment"`
	StartS int     `json:"start_s" yaml:"start_s"`
	EndS   int     `json:"end_s" yaml:"end_s"`
	Clicks int     `json:"clicks" yaml:"clicks"`
	CPS    float64 `json:"cps" yaml:"cps"`
}

// DelaySummary holds scalar aggregates of a delay sequence.
type DelaySummary struct {
	Count    int     `json:"count" yaml:"count"`
	MinMs    float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs    float64 `json:"max_ms" yaml:"max_ms"`
	MeanMs   float64 `json:"mean_ms" yaml:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms" yaml:"stddev_ms"`
}

// Report is the analytics snapshot of a session or delay sequence.
type Report struct {
	Name            string            `json:"name,omitempty" yaml:"name,omitempty"`
	Kind            model.SessionKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Clicks          int               `json:"total_clicks" yaml:"total_clicks"`
	Singles         int               `json:"single_clicks" yaml:"single_clicks"`
	Doubles         int               `json:"double_clicks" yaml:"double_clicks"`
	DurationSeconds float64           `json:"duration_seconds" yaml:"duration_seconds"`
	CPS             float64           `json:"cps" yaml:"cps"`
	Delays          DelaySummary      `json:"delays" yaml:"delays"`
	DelaysAvailable bool              `json:"delays_available" yaml:"delays_available"`
	Consistency     string            `json:"consistency" yaml:"consistency"`
	CV              float64           `json:"cv" yaml:"cv"`
	Percentiles     []PercentileRow   `json:"percentiles" yaml:"percentiles"`
	Distribution    []Bucket          `json:"interval_distribution" yaml:"interval_distribution"`
	Bursts          BurstSummary      `json:"bursts" yaml:"bursts"`
	SegmentSeconds  int               `json:"segment_seconds" yaml:"segment_seconds"`
	Trend           []Segment         `json:"trend" yaml:"trend"`
}

var bucketEdges = []struct {
	label string
	low   float64
	high  float64
}{
	{"0-30ms", 0, 30},
	{"30-50ms", 30, 50},
	{"50-100ms", 50, 100},
	{"100-150ms", 100, 150},
	{"150-200ms", 150, 200},
	{"200-300ms", 200, 300},
	{"300ms+", 300, math.Inf(1)},
}

// Compute builds a Report from a recorded session. Delays are taken from
// every event after the first.
func Compute(rec model.SessionRecord) Report {
	delays := rec.Delays()
	r := ComputeDelays(delays)
	r.Name = rec.Name
	r.Kind = rec.Kind
	r.Clicks = len(rec.Events)

	threshold := rec.DoubleThresholdMs
	if threshold <= 0 {
		threshold = model.DefaultDoubleThresholdMs
	}
	r.Doubles = countBelow(delays, threshold)
	r.Singles = r.Clicks - r.Doubles

	r.DurationSeconds = 0
	r.CPS = 0
	if !rec.StartedAt.IsZero() && !rec.EndedAt.IsZero() {
		elapsed := rec.EndedAt.Sub(rec.StartedAt).Seconds()
		r.DurationSeconds = elapsed
		if elapsed > 0 {
			r.CPS = float64(r.Clicks) / elapsed
		}
		r.SegmentSeconds, r.Trend = Trend(rec.Events, rec.StartedAt, rec.EndedAt)
	}
	return r
}

// ComputeDelays builds a Report from a bare delay sequence. Each delay is
// one click, classed as double below the default double threshold. CPS is
// derived from the mean delay and no trend is produced.
func ComputeDelays(delays []float64) Report {
	doubles := countBelow(delays, model.DefaultDoubleThresholdMs)
	r := Report{
		Clicks:       len(delays),
		Singles:      len(delays) - doubles,
		Doubles:      doubles,
		Percentiles:  Percentiles(delays, DefaultPercentiles...),
		Distribution: Distribution(delays),
		Bursts:       DetectBursts(delays, DefaultBurstThresholdMs),
	}
	r.Delays, r.DelaysAvailable = Describe(delays)
	r.Consistency, r.CV = Consistency(delays)
	if r.DelaysAvailable && r.Delays.MeanMs > 0 {
		r.CPS = 1000.0 / r.Delays.MeanMs
		r.DurationSeconds = r.Delays.MeanMs * float64(len(delays)) / 1000.0
	}
	return r
}

func countBelow(delays []float64, threshold float64) int {
	n := 0
	for _, d := range delays {
		if d < threshold {
			n++
		}
	}
	return n
}

// Describe returns min, max, mean and sample standard deviation.
// StdDevMs stays zero with fewer than two samples.
func Describe(delays []float64) (DelaySummary, bool) {
	if len(delays) == 0 {
		return DelaySummary{}, false
	}
	s := DelaySummary{Count: len(delays), MinMs: delays[0], MaxMs: delays[0]}
	for _, d := range delays[1:] {
		s.MinMs = math.Min(s.MinMs, d)
		s.MaxMs = math.Max(s.MaxMs, d)
	}
	s.MeanMs = mean(delays)
	if sd, ok := sampleStdDev(delays); ok {
		s.StdDevMs = sd
	}
	return s, true
}

// Percentile returns the element at rank floor(n*p/100) of an ascending
// slice. Ranks count from one and are clamped to [1, n], so the value is
// sorted[rank-1]. This reads one position lower than a zero-based index of
// the same formula: p90 of ten values is the ninth value, not the tenth.
func Percentile(sorted []float64, p float64) (float64, bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	rank := int(float64(n) * p / 100)
	rank = min(max(rank, 1), n)
	return sorted[rank-1], true
}

// Percentiles sorts a copy of delays and evaluates each p. Empty input
// yields nil.
func Percentiles(delays []float64, ps ...int) []PercentileRow {
	if len(delays) == 0 {
		return nil
	}
	sorted := append([]float64(nil), delays...)
	sort.Float64s(sorted)
	out := make([]PercentileRow, 0, len(ps))
	for _, p := range ps {
		v, _ := Percentile(sorted, float64(p))
		out = append(out, PercentileRow{P: p, DelayMs: v})
	}
	return out
}

// Distribution counts delays into the fixed interval buckets.
func Distribution(delays []float64) []Bucket {
	buckets := make([]Bucket, len(bucketEdges))
	for i, e := range bucketEdges {
		buckets[i] = Bucket{Label: e.label, LowMs: e.low}
		if math.IsInf(e.high, 1) {
			buckets[i].Open = true
		} else {
			buckets[i].HighMs = e.high
		}
	}
	for _, d := range delays {
		for i, e := range bucketEdges {
			if d < e.high {
				buckets[i].Count++
				break
			}
		}
	}
	if len(delays) > 0 {
		for i := range buckets {
			buckets[i].Percent = float64(buckets[i].Count) / float64(len(delays)) * 100
		}
	}
	return buckets
}

// DetectBursts finds maximal runs of at least two consecutive delays under
// thresholdMs.
func DetectBursts(delays []float64, thresholdMs float64) BurstSummary {
	var runs []int
	run := 0
	for _, d := range delays {
		if d < thresholdMs {
			run++
			continue
		}
		if run >= 2 {
			runs = append(runs, run)
		}
		run = 0
	}
	if run >= 2 {
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return BurstSummary{}
	}
	s := BurstSummary{Count: len(runs)}
	total := 0
	for _, r := range runs {
		total += r
		if r > s.Longest {
			s.Longest = r
		}
	}
	s.AverageLength = float64(total) / float64(len(runs))
	return s
}

// Consistency rates the coefficient of variation of delays. It returns
// NotAvailable with fewer than two samples.
func Consistency(delays []float64) (string, float64) {
	sd, ok := sampleStdDev(delays)
	if !ok {
		return NotAvailable, 0
	}
	avg := mean(delays)
	cv := 0.0
	if avg > 0 {
		cv = sd / avg * 100
	}
	return RateCV(cv), cv
}

// RateCV maps a coefficient of variation in percent to a label.
func RateCV(cv float64) string {
	switch {
	case cv < 15:
		return ConsistencyExcellent
	case cv < 25:
		return ConsistencyGood
	case cv < 40:
		return ConsistencyFair
	default:
		return ConsistencyInconsistent
	}
}

// Trend splits [start, end) into segments of max(1, floor(duration/10))
// whole seconds and reports the event rate in each. Segments without events
// are omitted.
func Trend(events []model.Event, start, end time.Time) (int, []Segment) {
	if len(events) < 2 || !end.After(start) {
		return 0, nil
	}
	duration := end.Sub(start).Seconds()
	size := int(duration / 10)
	if size < 1 {
		size = 1
	}
	count := int(duration / float64(size))
	if count < 1 {
		count = 1
	}
	segSize := time.Duration(size) * time.Second

	var out []Segment
	for i := 0; i < count; i++ {
		segStart := start.Add(time.Duration(i) * segSize)
		segEnd := segStart.Add(segSize)
		clicks := 0
		for _, ev := range events {
			if !ev.Timestamp.Before(segStart) && ev.Timestamp.Before(segEnd) {
				clicks++
			}
		}
		if clicks == 0 {
			continue
		}
		out = append(out, Segment{
			Index:  i + 1,
			StartS: i * size,
			EndS:   (i + 1) * size,
			Clicks: clicks,
			CPS:    float64(clicks) / float64(size),
		})
	}
	return size, out
}

// Summarize reduces a session to the aggregate row kept in history.
func Summarize(rec model.SessionRecord) model.SessionAggregate {
	r := Compute(rec)
	return model.SessionAggregate{
		UUID:        rec.ID,
		Name:        rec.Name,
		Kind:        rec.Kind,
		StartedAt:   rec.StartedAt,
		EndedAt:     rec.EndedAt,
		Clicks:      r.Clicks,
		Doubles:     r.Doubles,
		DurationMs:  rec.EndedAt.Sub(rec.StartedAt).Milliseconds(),
		ActiveMs:    rec.ActiveDuration.Milliseconds(),
		CPS:         r.CPS,
		MeanDelayMs: r.Delays.MeanMs,
		StdDevMs:    r.Delays.StdDevMs,
		CV:          r.CV,
		Consistency: r.Consistency,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1)), true
}
