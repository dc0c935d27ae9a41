package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/clickpace/internal/driver"
	"github.com/verte-zerg/clickpace/internal/generator"
	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/session"
	"github.com/verte-zerg/clickpace/internal/stats"
)

const cpsHistory = 60

var (
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Bold(true)
)

type actionMsg driver.Action

type stateMsg bool

type driverDoneMsg struct{ err error }

// RunModel drives the clicker engine while showing live diagnostics.
type RunModel struct {
	config  model.ClickerConfig
	opts    Options
	gen     *generator.Generator
	sess    *session.Session
	trigger *driver.ToggleTrigger
	drv     *driver.Driver

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	width  int
	height int

	active   bool
	last     *driver.Action
	cps      []float64
	quitting bool
	err      error
	outcome  *Outcome
}

// NewRunModel wires a generator and session to act. The trigger starts
// released; space toggles it.
func NewRunModel(cfg model.ClickerConfig, act driver.Actuator, opts Options) *RunModel {
	opts = opts.withDefaults()
	genCfg := generator.FromClicker(cfg)
	genCfg.KeepHistory = true
	genCfg.Now = opts.Now
	gen := generator.New(genCfg)
	sess := session.New(session.Config{
		Name: "clicker",
		Kind: model.KindClicker,
		Now:  opts.Now,
	})
	ctx, cancel := context.WithCancel(context.Background())
	m := &RunModel{
		config:  cfg,
		opts:    opts,
		gen:     gen,
		sess:    sess,
		trigger: &driver.ToggleTrigger{},
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, 64),
	}
	m.drv = driver.New(gen, sess, act, m.trigger, driver.Config{
		PollInterval: cfg.PollInterval,
		Button:       cfg.Button,
		Now:          opts.Now,
		Logger:       opts.Logger,
		OnAction: func(a driver.Action) {
			select {
			case m.events <- actionMsg(a):
			default:
			}
		},
		OnState: func(active bool) {
			select {
			case m.events <- stateMsg(active):
			case <-ctx.Done():
			}
		},
	})
	return m
}

// Init implements tea.Model.
func (m *RunModel) Init() tea.Cmd {
	return tea.Batch(m.runDriver(), m.waitForEvent())
}

func (m *RunModel) runDriver() tea.Cmd {
	return func() tea.Msg {
		return driverDoneMsg{err: m.drv.Run(m.ctx)}
	}
}

func (m *RunModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case actionMsg:
		a := driver.Action(msg)
		m.last = &a
		if a.CPSOK {
			m.cps = append(m.cps, a.CPS)
			if len(m.cps) > cpsHistory {
				m.cps = m.cps[len(m.cps)-cpsHistory:]
			}
		}
		return m, m.waitForEvent()
	case stateMsg:
		m.active = bool(msg)
		return m, m.waitForEvent()
	case driverDoneMsg:
		m.err = msg.err
		m.finish()
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.cancel()
			return m, nil
		case " ", "enter":
			if !m.quitting {
				m.trigger.Toggle()
			}
			return m, nil
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *RunModel) View() string {
	var b strings.Builder
	state := pausedStyle.Render("PAUSED")
	if m.active {
		state = activeStyle.Render("ACTIVE")
	}
	fmt.Fprintf(&b, "%s  %s  button %s\n\n", titleStyle.Render("clickpace run"), state, m.config.Button)
	if m.last == nil {
		b.WriteString(footerStyle.Render("Press space to start producing actions."))
	} else {
		a := m.last
		cps := stats.NotAvailable
		if a.CPSOK {
			cps = fmt.Sprintf("%.2f", a.CPS)
		}
		variance := stats.NotAvailable
		if a.Diag.VarianceOK {
			variance = fmt.Sprintf("%.1f", a.Diag.Variance)
		}
		fmt.Fprintf(&b, "Actions %s  CPS %s  delay %s  hold %s\n",
			valueStyle.Render(fmt.Sprintf("%d", a.Diag.Actions)),
			valueStyle.Render(cps),
			valueStyle.Render(fmt.Sprintf("%.1fms", a.DelayMs)),
			valueStyle.Render(a.Hold.Round(100*time.Microsecond).String()),
		)
		fmt.Fprintf(&b, "Variance %s  breaks %d  adjustments %d  drift %+.3f  streak %d\n",
			variance, a.Diag.PatternBreaks, a.Diag.VarianceAdjustments, a.Diag.Drift, a.Diag.Streak)
		if a.Safety > 0 {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Rate guard held back %s", a.Safety)))
			b.WriteString("\n")
		}
		if len(m.cps) > 0 {
			b.WriteString("\n")
			b.WriteString(stats.Sparkline(m.cps))
		}
	}
	b.WriteString("\n\n")
	if m.quitting {
		b.WriteString(footerStyle.Render("Stopping..."))
	} else {
		b.WriteString(footerStyle.Render("space: toggle  q: stop and save"))
	}
	content := b.String()
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// Outcome returns the saved session after the program exits.
func (m *RunModel) Outcome() *Outcome {
	return m.outcome
}

// Err returns the error the driver stopped with, if any.
func (m *RunModel) Err() error {
	return m.err
}

func (m *RunModel) finish() {
	if m.outcome != nil {
		return
	}
	m.cancel()
	m.sess.Close()
	rec := m.sess.Snapshot()
	var engine *stats.EngineReport
	act := stats.ActivityOf(rec)
	if r, ok := stats.ComputeEngine(m.gen.History(), m.gen.Diagnostics(), act, m.gen.CeilingCPS()); ok {
		engine = &r
	}
	out := persist(rec, engine, m.opts)
	m.outcome = &out
}
