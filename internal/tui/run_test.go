package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/clickpace/internal/driver"
	"github.com/verte-zerg/clickpace/internal/model"
)

func clickerConfig() model.ClickerConfig {
	return model.ClickerConfig{
		MinDelayMs:   84,
		MaxDelayMs:   143,
		CeilingCPS:   12,
		PollInterval: time.Millisecond,
		Button:       "LEFT",
		Seed:         11,
	}
}

func nextMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRunModelProducesActionsAndSaves(t *testing.T) {
	st := openStore(t)
	m := NewRunModel(clickerConfig(), driver.NewDryRunActuator(nil), Options{Store: st})
	done := make(chan tea.Msg, 1)
	go func() { done <- m.runDriver()() }()

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	actions := 0
	for actions < 3 {
		msg := nextMsg(t, m.waitForEvent())
		m.Update(msg)
		if _, ok := msg.(actionMsg); ok {
			actions++
		}
	}
	if !m.active {
		t.Fatalf("expected active state after toggle")
	}
	if !strings.Contains(m.View(), "ACTIVE") || !strings.Contains(m.View(), "Actions") {
		t.Fatalf("unexpected view:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop")
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected quit after driver stopped")
	}
	if m.Err() != nil {
		t.Fatalf("unexpected driver error: %v", m.Err())
	}
	out := m.Outcome()
	if out == nil {
		t.Fatalf("expected outcome")
	}
	if len(out.Record.Events) < 3 || out.StoredID == 0 {
		t.Fatalf("expected stored session with events, got %d events id=%d", len(out.Record.Events), out.StoredID)
	}
	if out.Engine == nil || out.Engine.Total < 3 || out.Engine.CeilingCPS != 12 {
		t.Fatalf("unexpected engine report: %+v", out.Engine)
	}
	if out.Engine.UptimePct > 100 || out.Engine.ActiveSeconds > out.Engine.SessionSeconds {
		t.Fatalf("active time exceeds session time: %+v", out.Engine)
	}
	if out.Record.Kind != model.KindClicker || out.Record.ActiveDuration <= 0 {
		t.Fatalf("unexpected record: kind=%s active=%s", out.Record.Kind, out.Record.ActiveDuration)
	}
}

func TestRunModelQuitWithoutActions(t *testing.T) {
	m := NewRunModel(clickerConfig(), driver.NewDryRunActuator(nil), Options{})
	done := make(chan tea.Msg, 1)
	go func() { done <- m.runDriver()() }()

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.quitting || !strings.Contains(m.View(), "Stopping") {
		t.Fatalf("expected stopping state")
	}
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if m.trigger.Held() {
		t.Fatalf("toggle must be ignored while stopping")
	}
	m.Update(<-done)
	out := m.Outcome()
	if out == nil || len(out.Record.Events) != 0 || out.Engine != nil {
		t.Fatalf("expected empty outcome, got %+v", out)
	}
	if !out.Record.StartedAt.IsZero() || !out.Record.EndedAt.IsZero() {
		t.Fatalf("expected zero times for an empty session")
	}
}

func TestRunModelCPSHistoryIsBounded(t *testing.T) {
	m := NewRunModel(clickerConfig(), driver.NewDryRunActuator(nil), Options{})
	defer m.cancel()
	for i := 0; i < cpsHistory+10; i++ {
		m.Update(actionMsg{CPS: float64(i), CPSOK: true})
	}
	m.Update(actionMsg{CPSOK: false})
	if len(m.cps) != cpsHistory {
		t.Fatalf("expected %d values, got %d", cpsHistory, len(m.cps))
	}
	if m.cps[0] != 10 {
		t.Fatalf("expected oldest values dropped, got %v", m.cps[0])
	}
	if !strings.Contains(m.View(), "CPS N/A") {
		t.Fatalf("expected N/A CPS in view:\n%s", m.View())
	}
}
