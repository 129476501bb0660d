// internal/status/encode_test.go
package status

import (
	"strings"
	"testing"
	"time"
)

func TestEncode_Document(t *testing.T) {
	s := Snapshot{
		Health: HealthError,
		Relays: []Relay{
			{ID: 1, Desired: true, Applied: AppliedOn},
			{ID: 2, Desired: false, Applied: AppliedFailed},
		},
		Passes:                  7,
		ConsecutiveFailedPasses: 2,
		LastError:               "link: relay 2 off: link: read timed out",
		At:                      time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC),
	}

	b, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}

	got := string(b)
	for _, want := range []string{
		`"health":"error"`,
		`"passes":7`,
		`"consecutive_failed_passes":2`,
		`"at":"2026-05-01T06:00:00Z"`,
		`{"id":1,"desired":"on","applied":"on"}`,
		`{"id":2,"desired":"off","applied":"failed"}`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("document %s missing %s", got, want)
		}
	}
}

func TestEncode_OmitsEmptyError(t *testing.T) {
	b, err := Encode(Snapshot{Health: HealthOK})
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	if strings.Contains(string(b), "last_error") {
		t.Fatalf("unexpected last_error in %s", b)
	}
	if !strings.Contains(string(b), `"relays":[]`) {
		t.Fatalf("relays should encode as empty list: %s", b)
	}
}

func TestSnapshot_Failed(t *testing.T) {
	s := Snapshot{Relays: []Relay{
		{ID: 1, Applied: AppliedFailed},
		{ID: 2, Applied: AppliedOff},
		{ID: 3, Applied: AppliedFailed},
	}}
	if got := s.Failed(); got != 2 {
		t.Fatalf("Failed()=%d want 2", got)
	}
}

func TestHealthName(t *testing.T) {
	cases := map[uint16]string{
		HealthUnknown: "unknown",
		HealthOK:      "ok",
		HealthError:   "error",
		HealthStopped: "stopped",
		99:            "unknown",
	}
	for code, want := range cases {
		if got := HealthName(code); got != want {
			t.Fatalf("HealthName(%d)=%q want=%q", code, got, want)
		}
	}
}
