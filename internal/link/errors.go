// internal/link/errors.go
package link

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout is returned when no complete line arrived within the
	// read timeout.
	ErrReadTimeout = errors.New("link: read timed out")

	// ErrUnexpectedBanner is returned when the device printed something
	// other than the setup banner after reset.
	ErrUnexpectedBanner = errors.New("link: unexpected banner")

	// ErrUnexpectedResponse is returned when a command reply does not start
	// with the acknowledgement prefix.
	ErrUnexpectedResponse = errors.New("link: unexpected response")

	// ErrNotReady is returned for commands issued before the handshake
	// succeeded.
	ErrNotReady = errors.New("link: not ready")

	// ErrClosed is returned once the link has been closed.
	ErrClosed = errors.New("link: closed")
)

// HandshakeError means the device could not be synchronised after reset.
// The link is unusable after it.
type HandshakeError struct {
	Port   string
	Banner string // what the device printed; partial or empty on timeout
	Err    error
}

func (e *HandshakeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnexpectedBanner):
		return fmt.Sprintf("link: handshake on %s: expected %q, got %q", e.Port, Banner, e.Banner)
	case errors.Is(e.Err, ErrReadTimeout):
		return fmt.Sprintf("link: handshake on %s: no banner before timeout (partial %q)", e.Port, e.Banner)
	default:
		return fmt.Sprintf("link: handshake on %s: %v", e.Port, e.Err)
	}
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// CommandError is one failed relay exchange. The link stays usable.
type CommandError struct {
	Relay    int
	Action   string // "on" or "off"
	Response string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Response != "" {
		return fmt.Sprintf("link: relay %d %s: %v: device said %q", e.Relay, e.Action, e.Err, e.Response)
	}
	return fmt.Sprintf("link: relay %d %s: %v", e.Relay, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
