// internal/link/protocol_test.go
package link

import "testing"

func TestFormatCommand(t *testing.T) {
	cases := []struct {
		relay int
		on    bool
		want  string
	}{
		{1, true, "1,on\n"},
		{1, false, "1,off\n"},
		{10, true, "10,on\n"},
	}
	for _, tc := range cases {
		if got := FormatCommand(tc.relay, tc.on); got != tc.want {
			t.Fatalf("FormatCommand(%d,%v)=%q want=%q", tc.relay, tc.on, got, tc.want)
		}
	}
}

func TestIsAck(t *testing.T) {
	cases := map[string]bool{
		"INFO: requesting relay 1 change to state on": true,
		"INFO: ":      true,
		"INFO:":       false,
		"ERR: bad id": false,
		"info: lower": false,
		" INFO: x":    false,
		"":            false,
	}
	for line, want := range cases {
		if got := IsAck(line); got != want {
			t.Fatalf("IsAck(%q)=%v want=%v", line, got, want)
		}
	}
}

func TestTrimLine(t *testing.T) {
	cases := map[string]string{
		"DEBUG: setup() complete\r\n": "DEBUG: setup() complete",
		"DEBUG: setup() complete\n":   "DEBUG: setup() complete",
		"  padded  \n":                "  padded  ",
	}
	for in, want := range cases {
		if got := trimLine(in); got != want {
			t.Fatalf("trimLine(%q)=%q want=%q", in, got, want)
		}
	}
}
