package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/store"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "clickpace.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func leftPress() tea.MouseMsg {
	return tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func newBench(t *testing.T, opts Options) (*Model, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	m := NewModel(model.BenchConfig{Name: "Benchmark", Duration: time.Second}, opts)
	return m, clock
}

func TestBenchStatusEveryFiveClicks(t *testing.T) {
	m, clock := newBench(t, Options{})
	for i := 0; i < 4; i++ {
		m.Update(leftPress())
		clock.Advance(100 * time.Millisecond)
	}
	if m.status != "" {
		t.Fatalf("expected no status before fifth click, got %q", m.status)
	}
	m.Update(leftPress())
	if !containsAll(m.status, []string{"Click #5", "LEFT", "single", "delay 100.0ms", "CPS 12.50"}) {
		t.Fatalf("unexpected status: %q", m.status)
	}
	if got := m.sess.Len(); got != 5 {
		t.Fatalf("expected 5 events, got %d", got)
	}
}

func TestBenchIgnoresReleaseAndMotion(t *testing.T) {
	m, _ := newBench(t, Options{})
	m.Update(tea.MouseMsg{Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if m.sess.Started() {
		t.Fatalf("expected no recorded events")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	events := m.sess.Events()
	if len(events) != 1 || events[0].Label != "RIGHT" {
		t.Fatalf("expected one RIGHT event, got %+v", events)
	}
}

func TestBenchTickEndsAndStoresSession(t *testing.T) {
	st := openStore(t)
	m, clock := newBench(t, Options{Store: st})
	start := clock.Now()
	for i := 0; i < 5; i++ {
		m.Update(leftPress())
		clock.Advance(100 * time.Millisecond)
	}
	m.Update(tickMsg(clock.Now()))
	if m.Outcome() != nil {
		t.Fatalf("session ended before its bound")
	}
	clock.Advance(time.Second)
	_, cmd := m.Update(tickMsg(clock.Now()))
	if cmd == nil {
		t.Fatalf("expected the tick to be rescheduled")
	}
	out := m.Outcome()
	if out == nil {
		t.Fatalf("expected finished session")
	}
	if !out.Record.EndedAt.Equal(start.Add(time.Second)) {
		t.Fatalf("expected end at the bound, got %v", out.Record.EndedAt.Sub(start))
	}
	if out.Report.Clicks != 5 || out.Aggregate.CPS != 5 {
		t.Fatalf("unexpected report: clicks=%d cps=%.2f", out.Report.Clicks, out.Aggregate.CPS)
	}
	if out.StoredID == 0 || len(out.Errors) > 0 {
		t.Fatalf("expected stored session, got id=%d errors=%v", out.StoredID, out.Errors)
	}

	m.Update(leftPress())
	if m.sess.Len() != 5 {
		t.Fatalf("clicks after the end must be ignored")
	}
	if !strings.Contains(m.View(), "Benchmark finished") {
		t.Fatalf("expected result view")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.Outcome() != nil || m.sess.Started() {
		t.Fatalf("expected a fresh session after restart")
	}
	if !m.hasLast || m.lastCPS != 5 || m.allSessions != 1 {
		t.Fatalf("footer stats not updated: %+v", m)
	}
}

func TestBenchQuitEarlyExports(t *testing.T) {
	dir := t.TempDir()
	m, clock := newBench(t, Options{Export: true, ExportDir: dir})
	m.Update(leftPress())
	clock.Advance(30 * time.Millisecond)
	m.Update(leftPress())
	clock.Advance(200 * time.Millisecond)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Fatalf("first q should finish, not quit")
	}
	out := m.Outcome()
	if out == nil || out.Report.Doubles != 1 {
		t.Fatalf("expected one double click, got %+v", out)
	}
	if _, err := os.Stat(out.Files.CSV); err != nil {
		t.Fatalf("expected exported csv: %v", err)
	}
	if filepath.Dir(out.Files.Stats) != dir {
		t.Fatalf("export went to %s", out.Files.Stats)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("second q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestBenchLoadsFooterFromStore(t *testing.T) {
	st := openStore(t)
	first, clock := newBench(t, Options{Store: st})
	for i := 0; i < 3; i++ {
		first.Update(leftPress())
		clock.Advance(250 * time.Millisecond)
	}
	first.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	second, _ := newBench(t, Options{Store: st})
	footer := second.renderFooter()
	if !containsAll(footer, []string{"Bound 1s", "Last 4.00 CPS", "All-time 4.00 CPS · 1 runs"}) {
		t.Fatalf("unexpected footer: %s", footer)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
