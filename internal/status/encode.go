// internal/status/encode.go
package status

import (
	"encoding/json"
	"time"
)

type relayDoc struct {
	ID      int    `json:"id"`
	Desired string `json:"desired"`
	Applied string `json:"applied"`
}

type snapshotDoc struct {
	Health                  string     `json:"health"`
	Passes                  uint64     `json:"passes"`
	ConsecutiveFailedPasses uint16     `json:"consecutive_failed_passes"`
	LastError               string     `json:"last_error,omitempty"`
	At                      time.Time  `json:"at"`
	Relays                  []relayDoc `json:"relays"`
}

// Encode renders a Snapshot as the JSON status document.
// No IO. No side effects.
func Encode(s Snapshot) ([]byte, error) {
	doc := snapshotDoc{
		Health:                  HealthName(s.Health),
		Passes:                  s.Passes,
		ConsecutiveFailedPasses: s.ConsecutiveFailedPasses,
		LastError:               s.LastError,
		At:                      s.At.UTC(),
		Relays:                  make([]relayDoc, 0, len(s.Relays)),
	}

	for _, r := range s.Relays {
		desired := "off"
		if r.Desired {
			desired = "on"
		}
		doc.Relays = append(doc.Relays, relayDoc{
			ID:      r.ID,
			Desired: desired,
			Applied: r.Applied.String(),
		})
	}

	return json.Marshal(doc)
}
