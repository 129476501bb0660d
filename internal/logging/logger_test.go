// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamzrod/relayd/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestHandler_JSONCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, config.LoggingConfig{Level: "debug", Format: "json"}, "1.2.3")

	slog.New(h).Debug("handshake complete", "port", "/dev/ttyACM0")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if rec["service"] != "relayd" || rec["version"] != "1.2.3" {
		t.Fatalf("default fields missing: %v", rec)
	}
	if rec["port"] != "/dev/ttyACM0" {
		t.Fatalf("attr missing: %v", rec)
	}
}

func TestHandler_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, config.LoggingConfig{Level: "warn", Format: "text"}, "dev")

	l := slog.New(h)
	l.Info("dropped")
	l.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.log")

	l, closeFn, err := New(config.LoggingConfig{Level: "info", Output: path}, "dev")
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	l.Info("relay command failed", "relay", 2)
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "relay command failed") {
		t.Fatalf("log file missing record: %q", data)
	}
}
