// Package tui provides the Bubble Tea benchmark and clicker interfaces.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/session"
	"github.com/verte-zerg/clickpace/internal/stats"
)

const (
	tickInterval     = 100 * time.Millisecond
	tapeLines        = 6
	defaultStatusGap = 5
)

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	valueStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	singleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	doubleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pastStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	pastDoubleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C4A4A"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model implements the Bubble Tea benchmark UI.
type Model struct {
	config model.BenchConfig
	opts   Options

	width  int
	height int

	sess    *session.Session
	status  string
	outcome *Outcome

	lastCPS     float64
	hasLast     bool
	allCPS      float64
	allSessions int
}

// NewModel constructs a benchmark TUI model.
func NewModel(cfg model.BenchConfig, opts Options) *Model {
	if cfg.StatusEvery <= 0 {
		cfg.StatusEvery = defaultStatusGap
	}
	if cfg.DoubleThresholdMs <= 0 {
		cfg.DoubleThresholdMs = model.DefaultDoubleThresholdMs
	}
	if cfg.Button == "" {
		cfg.Button = "LEFT"
	}
	m := &Model{
		config: cfg,
		opts:   opts.withDefaults(),
	}
	m.resetSession()
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.outcome == nil && m.sess.Started() && m.sess.Expired(time.Time(msg)) {
			m.finishSession()
		}
		return m, tick()
	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if label, ok := mouseLabel(msg.Button); ok {
			m.handleClick(label)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			if m.outcome != nil || !m.sess.Started() {
				return m, tea.Quit
			}
			m.finishSession()
			return m, nil
		case "r":
			if m.outcome != nil {
				m.resetSession()
			}
			return m, nil
		case "z", " ":
			m.handleClick(m.config.Button)
			return m, nil
		case "x":
			m.handleClick("RIGHT")
			return m, nil
		}
	}
	return m, nil
}

func mouseLabel(b tea.MouseButton) (string, bool) {
	switch b {
	case tea.MouseButtonLeft:
		return "LEFT", true
	case tea.MouseButtonRight:
		return "RIGHT", true
	case tea.MouseButtonMiddle:
		return "MIDDLE", true
	default:
		return "", false
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderRunning()
	if m.outcome != nil {
		content = m.renderResult()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	contentWidth := m.contentWidth()
	content = lipgloss.NewStyle().Width(contentWidth).Render(content)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

// Outcome returns the last finished session, if any.
func (m *Model) Outcome() *Outcome {
	return m.outcome
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(int(float64(m.width)*0.70), 1)
}

func (m *Model) handleClick(label string) {
	if m.outcome != nil {
		return
	}
	ev, err := m.sess.RecordAt(m.opts.Now(), label)
	if errors.Is(err, session.ErrEnded) {
		m.finishSession()
		return
	}
	if err != nil {
		m.status = errorStyle.Render(err.Error())
		return
	}
	if ev.Index%m.config.StatusEvery == 0 {
		m.status = statusLine(ev, m.sess.Events(), m.config.DoubleThresholdMs)
	}
}

// statusLine summarizes the session so far at a click.
func statusLine(ev model.Event, events []model.Event, thresholdMs float64) string {
	kind := model.ClassSingle
	if ev.Index > 1 && ev.DelayMs < thresholdMs {
		kind = model.ClassDouble
	}
	line := fmt.Sprintf("Click #%d  %s  %s", ev.Index, ev.Label, kind)
	if ev.Index > 1 {
		line += fmt.Sprintf("  delay %.1fms", ev.DelayMs)
	}
	if n := len(events); n > 1 {
		elapsed := events[n-1].Timestamp.Sub(events[0].Timestamp).Seconds()
		if elapsed > 0 {
			line += fmt.Sprintf("  CPS %.2f", float64(n)/elapsed)
		}
	}
	return line
}

func (m *Model) renderRunning() string {
	events := m.sess.Events()
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.config.Name))
	b.WriteString("\n")
	if !m.sess.Started() {
		b.WriteString(footerStyle.Render(fmt.Sprintf("Click anywhere (or press z/x) to start a %s run.", m.config.Duration)))
		return b.String()
	}
	remaining := m.sess.Remaining(m.opts.Now())
	doubles := m.sess.DoubleCount()
	fmt.Fprintf(&b, "Time left %s  Clicks %s  Singles %s  Doubles %s\n\n",
		valueStyle.Render(fmt.Sprintf("%.1fs", remaining.Seconds())),
		valueStyle.Render(fmt.Sprintf("%d", len(events))),
		valueStyle.Render(fmt.Sprintf("%d", len(events)-doubles)),
		valueStyle.Render(fmt.Sprintf("%d", doubles)),
	)
	tape := wrapGlyphs(buildTape(events, m.config.DoubleThresholdMs), m.contentWidth())
	b.WriteString(tailLines(tape, tapeLines))
	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(m.status)
	}
	return b.String()
}

func (m *Model) renderResult() string {
	out := m.outcome
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s finished", m.config.Name)))
	b.WriteString("\n\n")
	width := m.contentWidth()
	if width == 0 {
		width = 60
	}
	if err := stats.RenderAnalysis(&b, out.Report, width); err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
	}
	if out.Files.CSV != "" {
		fmt.Fprintf(&b, "Saved %s\n", out.Files.CSV)
		fmt.Fprintf(&b, "Saved %s\n", out.Files.Stats)
	}
	for _, e := range out.Errors {
		b.WriteString(errorStyle.Render(e))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("r: new run  q: quit"))
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) loadFooterStats() {
	if m.opts.Store == nil {
		return
	}
	sessions, err := m.opts.Store.ListSessions(context.Background(), model.StatsConfig{Kind: model.KindBenchmark})
	if err != nil {
		m.opts.Logger.Error("load session stats", "component", "tui", "err", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	m.lastCPS = sessions[len(sessions)-1].CPS
	m.hasLast = true
	var total float64
	for _, s := range sessions {
		total += s.CPS
	}
	m.allSessions = len(sessions)
	m.allCPS = total / float64(len(sessions))
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Bound %s", m.config.Duration)}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.2f CPS", m.lastCPS))
	}
	if m.allSessions > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.2f CPS · %d runs", m.allCPS, m.allSessions))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) resetSession() {
	m.sess = session.New(session.Config{
		Name:              m.config.Name,
		Kind:              model.KindBenchmark,
		DurationBound:     m.config.Duration,
		DoubleThresholdMs: m.config.DoubleThresholdMs,
		Now:               m.opts.Now,
	})
	m.status = ""
	m.outcome = nil
}

func (m *Model) finishSession() {
	if m.outcome != nil {
		return
	}
	m.sess.Close()
	out := persist(m.sess.Snapshot(), nil, m.opts)
	m.outcome = &out
	if len(out.Record.Events) == 0 || out.StoredID == 0 {
		return
	}
	m.lastCPS = out.Aggregate.CPS
	m.hasLast = true
	m.allCPS = (m.allCPS*float64(m.allSessions) + out.Aggregate.CPS) / float64(m.allSessions+1)
	m.allSessions++
}
