// internal/status/constants.go
package status

// ---- HEALTH CODES ----
// Codes are stable; MQTT consumers see the names below.

// HealthUnknown represents the boot state before the first pass.
const HealthUnknown uint16 = 0

// HealthOK means the last pass was acknowledged for every relay.
const HealthOK uint16 = 1

// HealthError means at least one command of the last pass failed.
const HealthError uint16 = 2

// HealthStopped means the controller ran its shutdown pass.
const HealthStopped uint16 = 3

// HealthName returns the wire name of a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ---- APPLIED STATE ----

// Applied is what the device last acknowledged for one relay.
type Applied uint8

const (
	AppliedUnknown Applied = iota
	AppliedOn
	AppliedOff
	AppliedFailed
)

func (a Applied) String() string {
	switch a {
	case AppliedOn:
		return "on"
	case AppliedOff:
		return "off"
	case AppliedFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ---- LIMITS ----

// MaxFailedPasses is where ConsecutiveFailedPasses saturates.
const MaxFailedPasses = 65535
