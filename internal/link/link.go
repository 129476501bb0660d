// internal/link/link.go
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/relayd/internal/logging"
)

// State is the connection lifecycle. It only moves forward.
type State int32

const (
	StateUnopened State = iota
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config is the runtime config of one link.
type Config struct {
	Port        string
	ReadTimeout time.Duration // per reply line; default 5s
	ResetDelay  time.Duration // each DTR phase; default 1s
}

const (
	defaultReadTimeout = 5 * time.Second
	defaultResetDelay  = time.Second
)

// Link talks to one relay microcontroller over a serial line.
//
// A single goroutine started by Open owns the port for the link's whole
// life. Commands are handed to it over a channel, so exchanges never
// interleave on the wire.
type Link struct {
	cfg    Config
	open   Opener
	logger *slog.Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	reqs   chan request

	// owned by the run goroutine
	port    Port
	pending []byte
}

type request struct {
	relay int
	on    bool
	reply chan error
}

// New creates an unopened link. A nil opener uses OpenSerial.
func New(cfg Config, open Opener, logger *slog.Logger) *Link {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = defaultResetDelay
	}
	if open == nil {
		open = OpenSerial
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Link{
		cfg:    cfg,
		open:   open,
		logger: logger.With("component", "link", "port", cfg.Port),
	}
}

// State returns the current lifecycle state.
func (l *Link) State() State {
	return State(l.state.Load())
}

func (l *Link) setState(s State) {
	l.state.Store(int32(s))
}

// ---- lifecycle ----

// Open starts the link goroutine and blocks until the handshake finished.
// On failure the goroutine has already exited and the port is closed.
// Cancelling ctx aborts the handshake; it does not bound the link's life.
func (l *Link) Open(ctx context.Context) error {
	l.mu.Lock()
	if l.State() == StateClosed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.done != nil {
		l.mu.Unlock()
		return errors.New("link: already opened")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.reqs = make(chan request)
	done := l.done
	l.mu.Unlock()

	ready := make(chan error, 1)
	go l.run(runCtx, ready)

	select {
	case err := <-ready:
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

// Close stops the goroutine and waits for it to release the port.
// Safe before Open, after a failed Open, and more than once.
func (l *Link) Close() error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	if cancel == nil {
		l.setState(StateClosed)
	}
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	return nil
}

func (l *Link) run(ctx context.Context, ready chan<- error) {
	defer close(l.done)
	defer l.setState(StateClosed)

	l.setState(StateHandshaking)

	if err := l.handshake(ctx); err != nil {
		l.logger.Error("handshake failed", "error", err)
		l.closePort()
		ready <- err
		return
	}

	l.setState(StateReady)
	l.logger.Info("handshake complete")
	ready <- nil

	defer l.closePort()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.reqs:
			req.reply <- l.exchange(req.relay, req.on)
		}
	}
}

func (l *Link) closePort() {
	if l.port == nil {
		return
	}
	if err := l.port.Close(); err != nil {
		l.logger.Warn("port close failed", "error", err)
	}
	l.port = nil
	l.logger.Info("port closed")
}

// ---- handshake ----

// handshake opens the port, pulses DTR to reboot the board, then expects the
// setup banner as the first line.
func (l *Link) handshake(ctx context.Context) error {
	port, err := l.open(l.cfg.Port)
	if err != nil {
		return &HandshakeError{Port: l.cfg.Port, Err: err}
	}
	l.port = port

	if err := port.SetDTR(false); err != nil {
		return &HandshakeError{Port: l.cfg.Port, Err: fmt.Errorf("deassert dtr: %w", err)}
	}
	if err := sleepCtx(ctx, l.cfg.ResetDelay); err != nil {
		return fmt.Errorf("link: handshake interrupted: %w", err)
	}

	if err := port.SetDTR(true); err != nil {
		return &HandshakeError{Port: l.cfg.Port, Err: fmt.Errorf("assert dtr: %w", err)}
	}
	if err := sleepCtx(ctx, l.cfg.ResetDelay); err != nil {
		return fmt.Errorf("link: handshake interrupted: %w", err)
	}

	line, err := l.readLine()
	if err != nil {
		return &HandshakeError{Port: l.cfg.Port, Banner: line, Err: err}
	}
	if line != Banner {
		return &HandshakeError{Port: l.cfg.Port, Banner: line, Err: ErrUnexpectedBanner}
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---- commands ----

// RelayOn asks the device to energise relay. One attempt, no retries.
func (l *Link) RelayOn(ctx context.Context, relay int) error {
	return l.command(ctx, relay, true)
}

// RelayOff asks the device to release relay. One attempt, no retries.
func (l *Link) RelayOff(ctx context.Context, relay int) error {
	return l.command(ctx, relay, false)
}

func (l *Link) command(ctx context.Context, relay int, on bool) error {
	switch l.State() {
	case StateReady:
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}

	l.mu.Lock()
	reqs, done := l.reqs, l.done
	l.mu.Unlock()

	req := request{relay: relay, on: on, reply: make(chan error, 1)}

	select {
	case reqs <- req:
	case <-done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exchange runs on the link goroutine: flush, write, read one reply.
func (l *Link) exchange(relay int, on bool) error {
	action := actionName(on)

	if err := l.drain(); err != nil {
		return &CommandError{Relay: relay, Action: action, Err: err}
	}

	if _, err := io.WriteString(l.port, FormatCommand(relay, on)); err != nil {
		return &CommandError{Relay: relay, Action: action, Err: fmt.Errorf("write: %w", err)}
	}

	line, err := l.readLine()
	if err != nil {
		return &CommandError{Relay: relay, Action: action, Response: line, Err: err}
	}
	if !IsAck(line) {
		return &CommandError{Relay: relay, Action: action, Response: line, Err: ErrUnexpectedResponse}
	}

	l.logger.Debug("relay command acknowledged", "relay", relay, "action", action, "response", line)
	return nil
}

// drain discards whatever a previous timed-out exchange left behind.
func (l *Link) drain() error {
	if len(l.pending) > 0 {
		l.logger.Debug("discarding stale input", "data", string(l.pending))
		l.pending = nil
	}
	if err := l.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	return nil
}

// readLine returns the next line without its terminator. On timeout the
// partial line is returned alongside ErrReadTimeout and stays buffered until
// the next drain.
func (l *Link) readLine() (string, error) {
	deadline := time.Now().Add(l.cfg.ReadTimeout)
	var buf [64]byte

	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := trimLine(string(l.pending[:i+1]))
			l.pending = append([]byte(nil), l.pending[i+1:]...)
			return line, nil
		}

		if !time.Now().Before(deadline) {
			return trimLine(string(l.pending)), ErrReadTimeout
		}

		n, err := l.port.Read(buf[:])
		if n > 0 {
			l.pending = append(l.pending, buf[:n]...)
		}
		if err != nil {
			return trimLine(string(l.pending)), fmt.Errorf("read: %w", err)
		}
	}
}
