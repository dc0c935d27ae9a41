package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/clickpace/internal/stats"
)

const rule = "═══════════════════════════════════════════════════════════════════════"

// WriteText renders the human-readable session report.
func WriteText(w io.Writer, r stats.Report, engine *stats.EngineReport, generated time.Time, files Files) error {
	var b strings.Builder
	b.WriteString("╔════════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║ CLICKPACE SESSION ANALYSIS REPORT                                  ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════════╝\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	if r.Name != "" {
		fmt.Fprintf(&b, "Session: %s (%s)\n", r.Name, r.Kind)
	}

	section(&b, "SESSION OVERVIEW")
	fmt.Fprintf(&b, "Total Clicks: %d\n", r.Clicks)
	fmt.Fprintf(&b, "├─ Single-clicks: %d (%s)\n", r.Singles, share(r.Singles, r.Clicks))
	fmt.Fprintf(&b, "└─ Double-clicks: %d (%s)\n\n", r.Doubles, share(r.Doubles, r.Clicks))
	fmt.Fprintf(&b, "Duration: %.3fs\n", r.DurationSeconds)
	fmt.Fprintf(&b, "CPS (Average): %.2f clicks/sec\n", r.CPS)

	section(&b, "CLICK TIMING ANALYSIS")
	if r.DelaysAvailable {
		fmt.Fprintf(&b, "Min Delay: %.3f ms\n", r.Delays.MinMs)
		fmt.Fprintf(&b, "Max Delay: %.3f ms\n", r.Delays.MaxMs)
		fmt.Fprintf(&b, "Avg Delay: %.3f ms\n", r.Delays.MeanMs)
		fmt.Fprintf(&b, "Std Deviation: %.3f ms\n", r.Delays.StdDevMs)
	} else {
		fmt.Fprintf(&b, "Delays: %s\n", stats.NotAvailable)
	}
	fmt.Fprintf(&b, "Consistency Rating: %s\n", r.Consistency)

	section(&b, "PERCENTILE ANALYSIS")
	if len(r.Percentiles) == 0 {
		fmt.Fprintf(&b, "Percentiles: %s\n", stats.NotAvailable)
	}
	for _, p := range r.Percentiles {
		fmt.Fprintf(&b, "P%-2d %10.3f ms\n", p.P, p.DelayMs)
	}

	section(&b, "CLICK INTERVAL DISTRIBUTION")
	total := r.Delays.Count
	for _, bucket := range r.Distribution {
		fmt.Fprintf(&b, "%-10s %4d clicks (%5.1f%%)\n", bucket.Label+":", bucket.Count, pct(bucket.Count, total))
	}

	section(&b, "BURST ANALYSIS")
	fmt.Fprintf(&b, "Total Bursts Detected: %d\n", r.Bursts.Count)
	fmt.Fprintf(&b, "Avg Burst Length: %.2f clicks\n", r.Bursts.AverageLength)
	fmt.Fprintf(&b, "Longest Burst: %d consecutive clicks\n", r.Bursts.Longest)

	section(&b, "FATIGUE ANALYSIS")
	if len(r.Trend) == 0 {
		fmt.Fprintf(&b, "Trend: %s\n", stats.NotAvailable)
	}
	for _, seg := range r.Trend {
		fmt.Fprintf(&b, "%-12s │ %5.2f CPS │ %3d clicks\n", fmt.Sprintf("%ds-%ds", seg.StartS, seg.EndS), seg.CPS, seg.Clicks)
	}

	if engine != nil {
		section(&b, "ENGINE")
		fmt.Fprintf(&b, "Actions: %d\n", engine.Total)
		fmt.Fprintf(&b, "CPS avg/median: %.2f / %.2f\n", engine.AvgCPS, engine.MedianCPS)
		fmt.Fprintf(&b, "CPS min/max: %.2f / %.2f\n", engine.MinCPS, engine.MaxCPS)
		fmt.Fprintf(&b, "Pattern Breaks: %d\n", engine.PatternBreaks)
		fmt.Fprintf(&b, "Variance Adjustments: %d\n", engine.VarianceAdjustments)
		fmt.Fprintf(&b, "Active: %.1fs of %.1fs (%.1f%%)\n", engine.ActiveSeconds, engine.SessionSeconds, engine.UptimePct)
		fmt.Fprintf(&b, "Ceiling %.0f CPS respected: %t\n", engine.CeilingCPS, engine.CeilingRespected)
	}

	section(&b, "FILES GENERATED")
	for _, f := range []string{files.CSV, files.Stats, files.YAML} {
		if f != "" {
			fmt.Fprintf(&b, "%s\n", filepath.Base(f))
		}
	}
	if files.CSV != "" {
		fmt.Fprintf(&b, "Location: %s\n", filepath.Dir(files.CSV))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n%s\n%s\n\n", rule, title, rule)
}

func pct(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func share(n, total int) string {
	if total <= 0 {
		return stats.NotAvailable
	}
	return fmt.Sprintf("%.1f%%", pct(n, total))
}
