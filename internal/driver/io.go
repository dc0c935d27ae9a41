package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Actuator performs one press of button held for hold.
type Actuator interface {
	Click(ctx context.Context, button string, hold time.Duration) error
}

// Trigger reports whether the operator currently wants actions produced.
type Trigger interface {
	Held() bool
}

// DryRunActuator logs presses instead of injecting input. It still waits out
// the hold so timing matches a real device.
type DryRunActuator struct {
	log    *slog.Logger
	clicks atomic.Int64
}

// NewDryRunActuator returns an actuator that logs at debug level.
func NewDryRunActuator(logger *slog.Logger) *DryRunActuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunActuator{log: logger.With("component", "actuator")}
}

// Click implements Actuator.
func (a *DryRunActuator) Click(ctx context.Context, button string, hold time.Duration) error {
	n := a.clicks.Add(1)
	a.log.Debug("press", "button", button, "hold", hold, "n", n)
	return sleep(ctx, hold)
}

// Clicks returns how many presses were performed.
func (a *DryRunActuator) Clicks() int64 {
	return a.clicks.Load()
}

// ToggleTrigger is a Trigger flipped by keyboard input.
type ToggleTrigger struct {
	held atomic.Bool
}

// Held implements Trigger.
func (t *ToggleTrigger) Held() bool {
	return t.held.Load()
}

// Toggle flips the state and returns the new value.
func (t *ToggleTrigger) Toggle() bool {
	for {
		old := t.held.Load()
		if t.held.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Set forces the state.
func (t *ToggleTrigger) Set(held bool) {
	t.held.Store(held)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
