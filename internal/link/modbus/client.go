// internal/link/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/relayd/internal/link"
	"github.com/tamzrod/relayd/internal/logging"
)

// Coil values for FC 5.
const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// CoilClient is the slice of modbus.Client the relay board needs.
type CoilClient interface {
	ReadCoils(address, quantity uint16) ([]byte, error)    // FC 1
	WriteSingleCoil(address, value uint16) ([]byte, error) // FC 5
}

// Dialer connects to the board. The closer releases the serial port.
type Dialer func(cfg Config) (CoilClient, io.Closer, error)

// Config is minimal transport + geometry config.
type Config struct {
	Device     string
	BaudRate   int
	UnitID     uint8
	CoilOffset uint16 // relay 1 lives at this coil
	Relays     int
	Timeout    time.Duration
}

// Link drives a Modbus RTU relay board: one coil per relay.
// It satisfies the same contract as the Arduino link. Requests are
// serialized because RTU is half-duplex.
type Link struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	state atomic.Int32

	mu     sync.Mutex
	client CoilClient
	closer io.Closer
}

// New creates an unopened board link. A nil dialer uses DialRTU.
func New(cfg Config, dial Dialer, logger *slog.Logger) *Link {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if dial == nil {
		dial = DialRTU
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Link{
		cfg:    cfg,
		dial:   dial,
		logger: logger.With("component", "link", "driver", "modbus", "port", cfg.Device),
	}
}

// DialRTU opens the serial line with goburrow's RTU handler (8-N-1).
func DialRTU(cfg Config) (CoilClient, io.Closer, error) {
	h := modbus.NewRTUClientHandler(cfg.Device)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.SlaveId = cfg.UnitID
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, nil, err
	}
	return modbus.NewClient(h), h, nil
}

// State returns the lifecycle state, shared with the Arduino link.
func (l *Link) State() link.State {
	return link.State(l.state.Load())
}

// ---- lifecycle ----

// Open connects and probes the board by reading every relay coil.
// A board that does not answer fails Open like a missing banner would.
func (l *Link) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case link.StateUnopened:
	case link.StateClosed:
		return link.ErrClosed
	default:
		return errors.New("modbus link: already opened")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	l.state.Store(int32(link.StateHandshaking))

	client, closer, err := l.dial(l.cfg)
	if err != nil {
		l.state.Store(int32(link.StateClosed))
		return &link.HandshakeError{Port: l.cfg.Device, Err: err}
	}

	if _, err := client.ReadCoils(l.cfg.CoilOffset, uint16(l.cfg.Relays)); err != nil {
		_ = closer.Close()
		l.state.Store(int32(link.StateClosed))
		return &link.HandshakeError{Port: l.cfg.Device, Err: fmt.Errorf("probe coils: %w", err)}
	}

	l.client = client
	l.closer = closer
	l.state.Store(int32(link.StateReady))
	l.logger.Info("relay board ready", "unit_id", l.cfg.UnitID, "relays", l.cfg.Relays)
	return nil
}

// Close releases the serial port. Safe in any state.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Store(int32(link.StateClosed))

	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.client = nil
	l.closer = nil
	return err
}

// ---- commands ----

func (l *Link) RelayOn(ctx context.Context, relay int) error {
	return l.writeCoil(ctx, relay, true)
}

func (l *Link) RelayOff(ctx context.Context, relay int) error {
	return l.writeCoil(ctx, relay, false)
}

func (l *Link) writeCoil(ctx context.Context, relay int, on bool) error {
	action := "off"
	value := coilOff
	if on {
		action = "on"
		value = coilOn
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if relay < 1 || relay > l.cfg.Relays {
		return &link.CommandError{Relay: relay, Action: action, Err: fmt.Errorf("no coil for relay %d", relay)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case link.StateReady:
	case link.StateClosed:
		return link.ErrClosed
	default:
		return link.ErrNotReady
	}

	addr := l.cfg.CoilOffset + uint16(relay-1)
	if _, err := l.client.WriteSingleCoil(addr, value); err != nil {
		return &link.CommandError{Relay: relay, Action: action, Err: err}
	}

	l.logger.Debug("coil written", "relay", relay, "coil", addr, "action", action)
	return nil
}
