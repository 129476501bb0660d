// internal/controller/wake.go
package controller

// Signal is a single-slot wake-up. Any number of Notify calls before the
// receiver looks collapse into one pending wake.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify never blocks.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C is received from to consume the pending wake.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Clear drops a pending wake, if any.
func (s *Signal) Clear() {
	select {
	case <-s.ch:
	default:
	}
}
