// internal/controller/errors.go
package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRelay is wrapped by InvalidRelayError.
	ErrInvalidRelay = errors.New("controller: invalid relay")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("controller: already started")
)

// InvalidRelayError rejects a relay id outside 1..Relays.
type InvalidRelayError struct {
	Relay  int
	Relays int
}

func (e *InvalidRelayError) Error() string {
	return fmt.Sprintf("controller: invalid relay %d (valid 1-%d)", e.Relay, e.Relays)
}

func (e *InvalidRelayError) Unwrap() error { return ErrInvalidRelay }
