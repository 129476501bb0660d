// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// helper to build a valid config quickly
func valid() *Config {
	cfg := Default()
	cfg.Program = []StepConfig{
		{Relays: []int{1, 2}, Minutes: 10},
	}
	return cfg
}

// ---- tests ----

func TestValidate_DefaultsPass(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_WithProgramPass(t *testing.T) {
	if err := Validate(valid()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Device.Driver = "gpio" }, "unknown driver"},
		{"empty port", func(c *Config) { c.Device.Port = "" }, "port required"},
		{"zero relays", func(c *Config) { c.Device.Relays = 0 }, "relays must be"},
		{"zero read timeout", func(c *Config) { c.Device.ReadTimeoutMs = 0 }, "read_timeout_ms"},
		{"zero interval", func(c *Config) { c.Reconcile.IntervalMs = 0 }, "interval_ms"},
		{"negative gap", func(c *Config) { c.Reconcile.CommandGapMs = -1 }, "command_gap_ms"},
		{"relay out of range", func(c *Config) { c.Program[0].Relays = []int{5} }, "relay 5 out of range"},
		{"relay zero", func(c *Config) { c.Program[0].Relays = []int{0} }, "relay 0 out of range"},
		{"empty step", func(c *Config) { c.Program[0].Relays = nil }, "at least one relay"},
		{"zero minutes", func(c *Config) { c.Program[0].Minutes = 0 }, "minutes must be"},
		{"modbus broadcast unit", func(c *Config) {
			c.Device.Driver = DriverModbus
			c.Device.Modbus.UnitID = 0
		}, "unit_id"},
		{"modbus coil overflow", func(c *Config) {
			c.Device.Driver = DriverModbus
			c.Device.Modbus.CoilOffset = 65534
		}, "address space"},
		{"mqtt bad qos", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.QoS = 3
		}, "qos"},
		{"mqtt wildcard prefix", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.TopicPrefix = "home/#"
		}, "wildcards"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestValidate_MQTTDisabledIgnoresFields(t *testing.T) {
	cfg := valid()
	cfg.MQTT.Enabled = false
	cfg.MQTT.Host = ""
	cfg.MQTT.QoS = 9

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalize_SortsAndDedupesProgramRelays(t *testing.T) {
	cfg := valid()
	cfg.Program[0].Relays = []int{3, 1, 3, 2, 1}

	Normalize(cfg)

	got := cfg.Program[0].Relays
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("relays=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relays=%v want=%v", got, want)
		}
	}
}

func TestNormalize_DerivesMQTTClientID(t *testing.T) {
	cfg := valid()
	cfg.MQTT.Enabled = true
	cfg.MQTT.TopicPrefix = "/garden/sprinklers/"

	Normalize(cfg)

	if !strings.HasPrefix(cfg.MQTT.ClientID, "relayd-") {
		t.Fatalf("client id %q not derived", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.TopicPrefix != "garden/sprinklers" {
		t.Fatalf("topic prefix %q not trimmed", cfg.MQTT.TopicPrefix)
	}
}

func TestLoad_FileOverDefaultsThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relayd.yaml")

	doc := `
device:
  port: /dev/ttyUSB1
  relays: 8
reconcile:
  interval_ms: 2000
program:
  - relays: [2, 1]
    minutes: 5
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("RELAYD_DEVICE_PORT", "/dev/ttyACM9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}

	if cfg.Device.Port != "/dev/ttyACM9" {
		t.Fatalf("env override not applied: port=%q", cfg.Device.Port)
	}
	if cfg.Device.Relays != 8 {
		t.Fatalf("relays=%d want 8", cfg.Device.Relays)
	}
	if cfg.Device.Driver != DriverArduino {
		t.Fatalf("default driver lost: %q", cfg.Device.Driver)
	}
	if cfg.Reconcile.IntervalMs != 2000 || cfg.Reconcile.CommandGapMs != 100 {
		t.Fatalf("reconcile=%+v", cfg.Reconcile)
	}
	if len(cfg.Program) != 1 || cfg.Program[0].Minutes != 5 {
		t.Fatalf("program=%+v", cfg.Program)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
