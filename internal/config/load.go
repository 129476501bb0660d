// internal/config/load.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is given.
// Values match the firmware this daemon was written against.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Driver:        DriverArduino,
			Port:          "/dev/ttyACM0",
			Relays:        4,
			ReadTimeoutMs: 5000,
			Modbus: ModbusConfig{
				UnitID:   1,
				BaudRate: 9600,
			},
		},
		Reconcile: ReconcileConfig{
			IntervalMs:   5000,
			CommandGapMs: 100,
		},
		MQTT: MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			QoS:         1,
			TopicPrefix: "relayd",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML file over the defaults and applies env overrides.
// An empty path skips the file. Validate/Normalize are left to the caller.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides follows the pattern RELAYD_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELAYD_DEVICE_PORT"); v != "" {
		cfg.Device.Port = v
	}
	if v := os.Getenv("RELAYD_DEVICE_DRIVER"); v != "" {
		cfg.Device.Driver = v
	}
	if v := os.Getenv("RELAYD_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("RELAYD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("RELAYD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("RELAYD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
