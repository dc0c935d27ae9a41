// Package stats contains click timing analytics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/clickpace/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if math.Abs(hi-lo) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// RenderSummary prints an overview of stored sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalCPS, totalCV float64
	var clicks int
	best := sessions[0]
	for _, s := range sessions {
		totalCPS += s.CPS
		totalCV += s.CV
		clicks += s.Clicks
		if s.CPS > best.CPS {
			best = s
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Clicks: %d", clicks),
		fmt.Sprintf("Avg CPS: %.2f", totalCPS/count),
		fmt.Sprintf("Best CPS: %.2f (%s)", best.CPS, best.EndedAt.Local().Format("2006-01-02 15:04")),
		fmt.Sprintf("Avg CV: %.1f%% (%s)", totalCV/count, RateCV(totalCV/count)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints CPS and consistency curves across sessions.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, 10, false)
}

// RenderCurvesWithSize prints progress curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	cps := make([]float64, len(sessions))
	cvs := make([]float64, len(sessions))
	for i, s := range sessions {
		cps[i] = s.CPS
		cvs[i] = s.CV
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Progress", []Series{
		{Name: "CPS", Values: MovingAverage(cps, window)},
		{Name: "CV %", Values: MovingAverage(cvs, window)},
	}, width, height, useColor)
}

// SessionTable returns headers and rows describing stored sessions.
func SessionTable(sessions []model.SessionAggregate) ([]string, [][]string) {
	headers := []string{"ID", "Ended", "Kind", "Name", "Clicks", "Doubles", "Duration", "CPS", "CV", "Rating"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.SessionID),
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			string(s.Kind),
			s.Name,
			fmt.Sprintf("%d", s.Clicks),
			fmt.Sprintf("%d", s.Doubles),
			fmt.Sprintf("%.1fs", float64(s.DurationMs)/1000),
			fmt.Sprintf("%.2f", s.CPS),
			fmt.Sprintf("%.1f%%", s.CV),
			s.Consistency,
		})
	}
	return headers, rows
}

// RenderSessionTable prints one aligned row per stored session.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers, rows := SessionTable(sessions)
	rightAlign := map[int]bool{0: true, 4: true, 5: true, 6: true, 7: true, 8: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderAnalysis prints the tables of a single Report.
func RenderAnalysis(w io.Writer, r Report, width int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Clicks: %d (single %d, double %d)\n", r.Clicks, r.Singles, r.Doubles)
	fmt.Fprintf(&b, "Duration: %.3fs  CPS: %.2f\n", r.DurationSeconds, r.CPS)
	if r.DelaysAvailable {
		fmt.Fprintf(&b, "Delay ms: min %.3f  max %.3f  mean %.3f  stddev %.3f\n",
			r.Delays.MinMs, r.Delays.MaxMs, r.Delays.MeanMs, r.Delays.StdDevMs)
	} else {
		fmt.Fprintf(&b, "Delay ms: %s\n", NotAvailable)
	}
	fmt.Fprintf(&b, "Consistency: %s", r.Consistency)
	if r.Consistency != NotAvailable {
		fmt.Fprintf(&b, " (CV %.1f%%)", r.CV)
	}
	b.WriteString("\n\n")

	if len(r.Percentiles) > 0 {
		rows := make([][]string, 0, len(r.Percentiles))
		for _, p := range r.Percentiles {
			rows = append(rows, []string{fmt.Sprintf("P%d", p.P), fmt.Sprintf("%.3f", p.DelayMs)})
		}
		for _, line := range formatTable([]string{"Percentile", "Delay (ms)"}, rows, map[int]bool{1: true}) {
			b.WriteString(line + "\n")
		}
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if r.DelaysAvailable {
		labels := make([]string, len(r.Distribution))
		counts := make([]float64, len(r.Distribution))
		for i, bucket := range r.Distribution {
			labels[i] = bucket.Label
			counts[i] = float64(bucket.Count)
		}
		if err := PlotBars(w, "Interval Distribution", labels, counts, width); err != nil {
			return err
		}
	}

	b.Reset()
	fmt.Fprintf(&b, "Bursts: %d  longest %d  avg length %.2f\n", r.Bursts.Count, r.Bursts.Longest, r.Bursts.AverageLength)
	if len(r.Trend) > 0 {
		fmt.Fprintf(&b, "\nTrend (%ds segments)\n", r.SegmentSeconds)
		rows := make([][]string, 0, len(r.Trend))
		for _, seg := range r.Trend {
			rows = append(rows, []string{
				fmt.Sprintf("%ds-%ds", seg.StartS, seg.EndS),
				fmt.Sprintf("%d", seg.Clicks),
				fmt.Sprintf("%.2f", seg.CPS),
			})
		}
		for _, line := range formatTable([]string{"Range", "Clicks", "CPS"}, rows, map[int]bool{1: true, 2: true}) {
			b.WriteString(line + "\n")
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderEngine prints an EngineReport.
func RenderEngine(w io.Writer, r EngineReport) error {
	rows := [][]string{
		{"Total actions", fmt.Sprintf("%d", r.Total)},
		{"Avg CPS", fmt.Sprintf("%.2f", r.AvgCPS)},
		{"Min / Max CPS", fmt.Sprintf("%.2f / %.2f", r.MinCPS, r.MaxCPS)},
		{"Median CPS", fmt.Sprintf("%.2f", r.MedianCPS)},
		{"P10 / P50 / P90 ms", fmt.Sprintf("%.1f / %.1f / %.1f", r.P10Ms, r.P50Ms, r.P90Ms)},
		{"Pattern breaks", fmt.Sprintf("%d", r.PatternBreaks)},
		{"Variance adjustments", fmt.Sprintf("%d", r.VarianceAdjustments)},
		{"Session", fmt.Sprintf("%.1fs", r.SessionSeconds)},
		{"Active", fmt.Sprintf("%.1fs (%.1f%%)", r.ActiveSeconds, r.UptimePct)},
		{"Idle", fmt.Sprintf("%.1fs", r.IdleSeconds)},
	}
	variance := NotAvailable
	if r.VarianceOK {
		variance = fmt.Sprintf("%.1f", r.Variance)
	}
	rows = append(rows, []string{"Recent variance", variance})
	ceiling := "yes"
	if !r.CeilingRespected {
		ceiling = "no"
	}
	rows = append(rows, []string{fmt.Sprintf("Max CPS <= %.0f", r.CeilingCPS), ceiling})
	for _, line := range formatTable(nil, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
