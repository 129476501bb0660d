// internal/mqtt/topics.go
package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics builds the topic tree under one prefix:
//
//	<prefix>/relay/<id>/set   inbound intent (on|off)
//	<prefix>/status           retained status document
//	<prefix>/availability     retained online|offline, also the LWT
type Topics struct {
	Prefix string
}

func (t Topics) RelaySetFilter() string { return t.Prefix + "/relay/+/set" }

func (t Topics) Status() string { return t.Prefix + "/status" }

func (t Topics) Availability() string { return t.Prefix + "/availability" }

// ParseRelaySet extracts the relay id from a set topic.
// Range checking is left to the controller.
func (t Topics) ParseRelaySet(topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/relay/")
	if !ok {
		return 0, fmt.Errorf("mqtt: topic %q outside %s/relay/", topic, t.Prefix)
	}
	idText, ok := strings.CutSuffix(rest, "/set")
	if !ok || idText == "" || strings.Contains(idText, "/") {
		return 0, fmt.Errorf("mqtt: topic %q is not a relay set topic", topic)
	}
	id, err := strconv.Atoi(idText)
	if err != nil {
		return 0, fmt.Errorf("mqtt: topic %q: relay id: %w", topic, err)
	}
	return id, nil
}

// ParseState accepts on/off, 1/0 and true/false in any case.
func ParseState(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("mqtt: unknown relay state %q", payload)
	}
}
