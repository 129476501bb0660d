// internal/status/snapshot.go
package status

import "time"

// Relay is one row of the relay table.
type Relay struct {
	ID      int
	Desired bool
	Applied Applied
}

// Snapshot is the controller state after a pass.
// It is a copy; holders may keep it.
type Snapshot struct {
	Health                  uint16
	Relays                  []Relay
	Passes                  uint64
	ConsecutiveFailedPasses uint16
	LastError               string
	At                      time.Time
}

// Failed counts relays whose last command failed.
func (s Snapshot) Failed() int {
	n := 0
	for _, r := range s.Relays {
		if r.Applied == AppliedFailed {
			n++
		}
	}
	return n
}
