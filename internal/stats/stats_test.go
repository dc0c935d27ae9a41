package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	if out := MovingAverage([]float64{1, 2}, 1); out[1] != 2 {
		t.Fatalf("window 1 should copy input")
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 1}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	end := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := RenderSummary(&buf, []model.SessionAggregate{
		{CPS: 8, CV: 10, Clicks: 80, EndedAt: end},
		{CPS: 10, CV: 20, Clicks: 100, EndedAt: end},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Clicks: 180", "Avg CPS: 9.00", "Best CPS: 10.00", "Avg CV: 15.0% (Good)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestRenderAnalysis(t *testing.T) {
	var buf bytes.Buffer
	r := ComputeDelays([]float64{20, 25, 15, 200, 120, 110})
	if err := RenderAnalysis(&buf, r, 20); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Percentile", "P90", "Interval Distribution", "0-30ms", "Bursts: 1  longest 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderAnalysisEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderAnalysis(&buf, ComputeDelays(nil), 20); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Delay ms: N/A") {
		t.Fatalf("expected not-available marker, got %q", buf.String())
	}
}

func TestRenderEngine(t *testing.T) {
	var buf bytes.Buffer
	r, _ := ComputeEngine([]float64{100, 120}, model.EngineDiagnostics{Actions: 2}, Activity{}, 12)
	if err := RenderEngine(&buf, r); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Max CPS <= 12") || !strings.Contains(out, "Recent variance") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
