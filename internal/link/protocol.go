// internal/link/protocol.go
package link

import (
	"strconv"
	"strings"
)

// ---- wire protocol (ASCII, one line per message) ----

// Banner is printed once by the firmware when setup() returns.
const Banner = "DEBUG: setup() complete"

// AckPrefix starts every successful command reply.
const AckPrefix = "INFO: "

// FormatCommand renders "<relay>,on\n" or "<relay>,off\n".
func FormatCommand(relay int, on bool) string {
	return strconv.Itoa(relay) + "," + actionName(on) + "\n"
}

// IsAck reports whether a reply line acknowledges a command.
func IsAck(line string) bool {
	return strings.HasPrefix(line, AckPrefix)
}

// trimLine strips the line terminator only. Println on the firmware side
// emits "\r\n"; anything else in the line is significant.
func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func actionName(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
