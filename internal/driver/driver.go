// Package driver runs the clicker: a poll loop watches the trigger and a
// click loop owns the generator and session.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/clickpace/internal/generator"
	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/session"
)

// DefaultPollInterval is how often the trigger is sampled.
const DefaultPollInterval = 10 * time.Millisecond

var errSessionDone = errors.New("session bound reached")

// Action describes one performed action for observers.
type Action struct {
	Event   model.Event
	DelayMs float64
	Hold    time.Duration
	Safety  time.Duration
	CPS     float64
	CPSOK   bool
	Diag    model.EngineDiagnostics
}

// Config configures a Driver.
type Config struct {
	PollInterval time.Duration
	Button       string
	Now          func() time.Time
	// Sleep waits d or until ctx is done. Tests replace it.
	Sleep    func(ctx context.Context, d time.Duration) error
	OnAction func(Action)
	OnState  func(active bool)
	Logger   *slog.Logger
}

// Driver wires a generator and session to an actuator and trigger.
type Driver struct {
	cfg  Config
	gen  *generator.Generator
	sess *session.Session
	act  Actuator
	trig Trigger
	log  *slog.Logger
}

// New returns a Driver. The generator and session must not be used by
// anything else while Run is executing.
func New(gen *generator.Generator, sess *session.Session, act Actuator, trig Trigger, cfg Config) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Button == "" {
		cfg.Button = "LEFT"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:  cfg,
		gen:  gen,
		sess: sess,
		act:  act,
		trig: trig,
		log:  logger.With("component", "driver"),
	}
}

// Run blocks until ctx is cancelled, the session bound is reached or the
// actuator fails. Cancellation and the bound are not errors.
func (d *Driver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	edges := make(chan bool, 1)
	g.Go(func() error {
		return d.poll(ctx, edges)
	})
	g.Go(func() error {
		return d.clickLoop(ctx, edges)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errSessionDone) {
		return nil
	}
	return err
}

func (d *Driver) poll(ctx context.Context, edges chan<- bool) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	held := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		now := d.trig.Held()
		if now == held {
			continue
		}
		select {
		case edges <- now:
			held = now
		case <-ctx.Done():
			return ctx.Err()
		default:
			// click loop is busy; retry on the next tick
		}
	}
}

func (d *Driver) clickLoop(ctx context.Context, edges <-chan bool) error {
	active := false
	defer func() {
		if active {
			d.setActive(false)
		}
	}()
	for {
		if !active {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case held := <-edges:
				active = d.apply(active, held)
			}
			continue
		}
		select {
		case held := <-edges:
			active = d.apply(active, held)
			continue
		default:
		}

		if d.sess.Expired(d.cfg.Now()) {
			return errSessionDone
		}
		safety := d.gen.SafetyDelay(d.cfg.Now())
		if err := d.cfg.Sleep(ctx, safety); err != nil {
			return err
		}
		delay := d.gen.NextDelay()
		hold := d.gen.HoldDuration()
		if err := d.act.Click(ctx, d.cfg.Button, hold); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("actuate: %w", err)
		}
		at := d.cfg.Now()
		d.gen.RecordAction(at)
		ev, err := d.sess.RecordAt(at, d.cfg.Button)
		if errors.Is(err, session.ErrEnded) {
			return errSessionDone
		}
		if err != nil {
			return err
		}
		if d.cfg.OnAction != nil {
			cps, ok := d.gen.CurrentCPS()
			d.cfg.OnAction(Action{
				Event:   ev,
				DelayMs: delay,
				Hold:    hold,
				Safety:  safety,
				CPS:     cps,
				CPSOK:   ok,
				Diag:    d.gen.Diagnostics(),
			})
		}
		if err := d.cfg.Sleep(ctx, time.Duration(delay*float64(time.Millisecond))); err != nil {
			return err
		}
	}
}

func (d *Driver) apply(active, held bool) bool {
	if active == held {
		return active
	}
	d.setActive(held)
	return held
}

func (d *Driver) setActive(active bool) {
	if active {
		d.sess.Start()
	} else {
		d.sess.Stop()
		d.gen.ResetStreak()
	}
	d.log.Debug("trigger edge", "active", active)
	if d.cfg.OnState != nil {
		d.cfg.OnState(active)
	}
}
