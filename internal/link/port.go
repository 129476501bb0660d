// internal/link/port.go
package link

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is what the link needs from a serial device.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
	ResetInputBuffer() error
}

// Opener opens the named port with the link's line settings.
type Opener func(name string) (Port, error)

// BaudRate is fixed by the firmware.
const BaudRate = 9600

// readPoll bounds a single Read call so line reads can honour their own
// deadline precisely.
const readPoll = 100 * time.Millisecond

// OpenSerial opens name as 9600 8-N-1 without flow control.
// A Read that sees no data returns (0, nil) after readPoll.
func OpenSerial(name string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	if err := p.SetReadTimeout(readPoll); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}

	return p, nil
}
