// internal/controller/controller.go
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/relayd/internal/logging"
	"github.com/tamzrod/relayd/internal/status"
)

// Link abstracts the device driver the controller reconciles against.
// Only the controller goroutine calls RelayOn/RelayOff.
type Link interface {
	Open(ctx context.Context) error
	RelayOn(ctx context.Context, relay int) error
	RelayOff(ctx context.Context, relay int) error
	Close() error
}

// Config is the minimal runtime config the controller needs.
type Config struct {
	Relays     int
	Interval   time.Duration // idle wait between passes
	CommandGap time.Duration // pause between two commands of a pass
}

// Controller keeps the device converged to the desired relay table.
//
// RelayOn/RelayOff only record intent and wake the loop. The loop sweeps
// every relay in ascending order, then waits for a wake or the interval.
// Stop always ends with an all-off sweep before the link is closed.
type Controller struct {
	cfg    Config
	link   Link
	logger *slog.Logger
	wake   *Signal

	mu      sync.Mutex
	desired []bool // index 0 is relay 1

	statMu    sync.Mutex
	snap      status.Snapshot
	observers []func(status.Snapshot)

	life    sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// New creates a stopped controller with every relay desired off.
func New(cfg Config, link Link, logger *slog.Logger) (*Controller, error) {
	if cfg.Relays < 1 {
		return nil, errors.New("controller: relays must be >= 1")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("controller: interval must be > 0")
	}
	if cfg.CommandGap < 0 {
		return nil, errors.New("controller: command gap must be >= 0")
	}
	if link == nil {
		return nil, errors.New("controller: link required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	c := &Controller{
		cfg:     cfg,
		link:    link,
		logger:  logger.With("component", "controller"),
		wake:    NewSignal(),
		desired: make([]bool, cfg.Relays),
	}

	c.snap = status.Snapshot{
		Health: status.HealthUnknown,
		Relays: make([]status.Relay, cfg.Relays),
	}
	for i := range c.snap.Relays {
		c.snap.Relays[i] = status.Relay{ID: i + 1}
	}

	return c, nil
}

// Relays returns N; valid ids are 1..N.
func (c *Controller) Relays() int { return c.cfg.Relays }

// Running reports whether the handshake succeeded and Stop has not finished.
func (c *Controller) Running() bool { return c.running.Load() }

// OnPass registers fn to receive the snapshot after every pass.
// Must be called before Start. fn runs on the controller goroutine.
func (c *Controller) OnPass(fn func(status.Snapshot)) {
	c.statMu.Lock()
	defer c.statMu.Unlock()
	c.observers = append(c.observers, fn)
}

// ---- desired state ----

// RelayOn records that relay should be energised.
func (c *Controller) RelayOn(relay int) error { return c.set(relay, true) }

// RelayOff records that relay should be released.
func (c *Controller) RelayOff(relay int) error { return c.set(relay, false) }

func (c *Controller) set(relay int, on bool) error {
	if err := c.check(relay); err != nil {
		return err
	}

	c.mu.Lock()
	c.desired[relay-1] = on
	c.mu.Unlock()

	c.wake.Notify()
	return nil
}

// Desired returns the recorded intent for relay.
func (c *Controller) Desired(relay int) (bool, error) {
	if err := c.check(relay); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desired[relay-1], nil
}

// DesiredTable returns a copy of the whole table, index 0 is relay 1.
func (c *Controller) DesiredTable() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.desired...)
}

func (c *Controller) check(relay int) error {
	if relay < 1 || relay > c.cfg.Relays {
		return &InvalidRelayError{Relay: relay, Relays: c.cfg.Relays}
	}
	return nil
}

// Snapshot returns the state recorded by the last pass.
func (c *Controller) Snapshot() status.Snapshot {
	c.statMu.Lock()
	defer c.statMu.Unlock()
	return copySnapshot(c.snap)
}

// ---- lifecycle ----

// Start opens the link on the controller goroutine and returns once the
// handshake is done. On failure nothing is left running.
func (c *Controller) Start(ctx context.Context) error {
	c.life.Lock()
	if c.done != nil {
		c.life.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.life.Unlock()

	started := make(chan error, 1)
	go c.run(runCtx, started)

	select {
	case err := <-started:
		if err != nil {
			<-done
			return err
		}
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Stop asks the loop to finish its current pass, drives every relay off,
// closes the link and waits for all of it. No-op before Start.
func (c *Controller) Stop() {
	c.life.Lock()
	cancel, done := c.cancel, c.done
	c.life.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Controller) run(ctx context.Context, started chan<- error) {
	defer close(c.done)

	if err := c.link.Open(ctx); err != nil {
		_ = c.link.Close()
		c.logger.Error("start failed", "error", err)
		started <- fmt.Errorf("controller: start: %w", err)
		return
	}

	c.running.Store(true)
	c.logger.Info("controller started", "relays", c.cfg.Relays, "interval", c.cfg.Interval)
	started <- nil

	c.loop(ctx)
	c.shutdown()

	c.running.Store(false)
	c.logger.Info("controller stopped")
}

// loop runs passes until ctx is cancelled. The wake is cleared before the
// table is read, so a change landing mid-pass always earns another pass.
func (c *Controller) loop(ctx context.Context) {
	timer := time.NewTimer(c.cfg.Interval)
	defer timer.Stop()

	for {
		c.wake.Clear()
		desired := c.DesiredTable()
		applied, lastErr := c.pass(desired)
		c.record(desired, applied, lastErr, false)

		timer.Reset(c.cfg.Interval)

		select {
		case <-ctx.Done():
			return
		case <-c.wake.C():
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// shutdown drives everything off regardless of intent, then closes the link.
func (c *Controller) shutdown() {
	off := make([]bool, c.cfg.Relays)
	applied, lastErr := c.pass(off)
	if lastErr != nil {
		c.logger.Error("shutdown pass incomplete", "failed", countFailed(applied), "error", lastErr)
	}
	c.record(c.DesiredTable(), applied, lastErr, true)

	if err := c.link.Close(); err != nil {
		c.logger.Warn("link close failed", "error", err)
	}
}

// pass issues exactly one command per relay, ascending. Failures are
// logged and left for the next pass.
func (c *Controller) pass(desired []bool) ([]status.Applied, error) {
	ctx := context.Background()
	applied := make([]status.Applied, len(desired))
	var lastErr error

	for i, on := range desired {
		if i > 0 && c.cfg.CommandGap > 0 {
			time.Sleep(c.cfg.CommandGap)
		}

		relay := i + 1
		var err error
		if on {
			err = c.link.RelayOn(ctx, relay)
		} else {
			err = c.link.RelayOff(ctx, relay)
		}

		if err != nil {
			applied[i] = status.AppliedFailed
			lastErr = err
			c.logger.Warn("relay command failed", "relay", relay, "on", on, "error", err)
			continue
		}

		if on {
			applied[i] = status.AppliedOn
		} else {
			applied[i] = status.AppliedOff
		}
	}

	return applied, lastErr
}

// record updates the snapshot and notifies observers.
func (c *Controller) record(desired []bool, applied []status.Applied, lastErr error, final bool) {
	c.statMu.Lock()

	s := &c.snap
	s.Passes++
	s.At = time.Now()
	s.Relays = make([]status.Relay, len(desired))
	for i := range desired {
		s.Relays[i] = status.Relay{ID: i + 1, Desired: desired[i], Applied: applied[i]}
	}

	if lastErr != nil {
		s.Health = status.HealthError
		s.LastError = lastErr.Error()
		// HARD INVARIANT: must not wrap
		if s.ConsecutiveFailedPasses < status.MaxFailedPasses {
			s.ConsecutiveFailedPasses++
		}
	} else {
		s.Health = status.HealthOK
		s.LastError = ""
		s.ConsecutiveFailedPasses = 0
	}

	if final {
		s.Health = status.HealthStopped
	}

	out := copySnapshot(*s)
	observers := slices.Clone(c.observers)
	c.statMu.Unlock()

	c.logger.Debug("pass complete",
		"pass", out.Passes,
		"health", status.HealthName(out.Health),
		"failed", out.Failed(),
	)

	for _, fn := range observers {
		fn(out)
	}
}

func copySnapshot(s status.Snapshot) status.Snapshot {
	s.Relays = append([]status.Relay(nil), s.Relays...)
	return s
}

func countFailed(applied []status.Applied) int {
	n := 0
	for _, a := range applied {
		if a == status.AppliedFailed {
			n++
		}
	}
	return n
}
