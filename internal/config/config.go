// internal/config/config.go
package config

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
	Program   []StepConfig    `yaml:"program"`
}

// ---- DEVICE ----

// Driver names accepted in device.driver.
const (
	DriverArduino = "arduino"
	DriverModbus  = "modbus"
)

type DeviceConfig struct {
	Driver        string       `yaml:"driver"`
	Port          string       `yaml:"port"`
	Relays        int          `yaml:"relays"`
	ReadTimeoutMs int          `yaml:"read_timeout_ms"`
	Modbus        ModbusConfig `yaml:"modbus"`
}

// ModbusConfig only applies when driver is "modbus".
type ModbusConfig struct {
	UnitID     uint8  `yaml:"unit_id"`
	CoilOffset uint16 `yaml:"coil_offset"`
	BaudRate   int    `yaml:"baud_rate"`
}

// ---- RECONCILE ----

type ReconcileConfig struct {
	IntervalMs   int `yaml:"interval_ms"`
	CommandGapMs int `yaml:"command_gap_ms"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// ---- PROGRAM ----

// StepConfig is one entry of the run list: switch Relays on for Minutes.
type StepConfig struct {
	Relays  []int `yaml:"relays"`
	Minutes int   `yaml:"minutes"`
}
