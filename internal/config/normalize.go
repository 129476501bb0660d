// internal/config/normalize.go
package config

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// PROGRAM: relays switch in ascending order, once each
	// ------------------------------------------------------------

	for i := range cfg.Program {
		s := &cfg.Program[i]
		sort.Ints(s.Relays)

		out := s.Relays[:0]
		for j, r := range s.Relays {
			if j > 0 && r == s.Relays[j-1] {
				continue
			}
			out = append(out, r)
		}
		s.Relays = out
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/")

	// Broker rejects a second session with the same id, so never share one.
	if cfg.MQTT.Enabled && cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "relayd-" + uuid.NewString()[:8]
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}
