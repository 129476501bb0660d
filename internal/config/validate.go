// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device

	switch d.Driver {
	case DriverArduino, DriverModbus:
	default:
		return fmt.Errorf("device: unknown driver %q (want %q or %q)", d.Driver, DriverArduino, DriverModbus)
	}

	if d.Port == "" {
		return fmt.Errorf("device: port required")
	}
	if d.Relays < 1 {
		return fmt.Errorf("device: relays must be >= 1, got %d", d.Relays)
	}
	if d.ReadTimeoutMs <= 0 {
		return fmt.Errorf("device: read_timeout_ms must be > 0, got %d", d.ReadTimeoutMs)
	}

	if d.Driver == DriverModbus {
		// 0 is broadcast, 248-255 reserved
		if d.Modbus.UnitID < 1 || d.Modbus.UnitID > 247 {
			return fmt.Errorf("device.modbus: unit_id must be 1-247, got %d", d.Modbus.UnitID)
		}
		if d.Modbus.BaudRate <= 0 {
			return fmt.Errorf("device.modbus: baud_rate must be > 0, got %d", d.Modbus.BaudRate)
		}
		if int(d.Modbus.CoilOffset)+d.Relays > 65536 {
			return fmt.Errorf(
				"device.modbus: coil range %d-%d exceeds address space",
				d.Modbus.CoilOffset,
				int(d.Modbus.CoilOffset)+d.Relays-1,
			)
		}
	}

	// ------------------------------------------------------------
	// RECONCILE
	// ------------------------------------------------------------

	if cfg.Reconcile.IntervalMs <= 0 {
		return fmt.Errorf("reconcile: interval_ms must be > 0, got %d", cfg.Reconcile.IntervalMs)
	}
	if cfg.Reconcile.CommandGapMs < 0 {
		return fmt.Errorf("reconcile: command_gap_ms must be >= 0, got %d", cfg.Reconcile.CommandGapMs)
	}

	// ------------------------------------------------------------
	// MQTT (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.MQTT; m.Enabled {
		if m.Host == "" {
			return fmt.Errorf("mqtt: host required when enabled")
		}
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("mqtt: port must be 1-65535, got %d", m.Port)
		}
		if m.QoS < 0 || m.QoS > 2 {
			return fmt.Errorf("mqtt: qos must be 0-2, got %d", m.QoS)
		}
		if m.TopicPrefix == "" {
			return fmt.Errorf("mqtt: topic_prefix required when enabled")
		}
		if strings.ContainsAny(m.TopicPrefix, "+#") {
			return fmt.Errorf("mqtt: topic_prefix %q must not contain wildcards", m.TopicPrefix)
		}
	}

	// ------------------------------------------------------------
	// PROGRAM
	// ------------------------------------------------------------

	for i, s := range cfg.Program {
		if len(s.Relays) == 0 {
			return fmt.Errorf("program step %d: at least one relay required", i+1)
		}
		if s.Minutes <= 0 {
			return fmt.Errorf("program step %d: minutes must be > 0, got %d", i+1, s.Minutes)
		}
		for _, r := range s.Relays {
			if r < 1 || r > d.Relays {
				return fmt.Errorf(
					"program step %d: relay %d out of range 1-%d",
					i+1,
					r,
					d.Relays,
				)
			}
		}
	}

	return nil
}
