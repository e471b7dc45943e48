package config

import "time"

// BridgeConfig holds the settings loaded from bridge_config.yaml.
type BridgeConfig struct {
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Link      LinkConfig      `yaml:"link" json:"link"`
	Control   ControlConfig   `yaml:"control" json:"control"`
	ZeroMQ    ZeroMQConfig    `yaml:"zeromq" json:"zeromq"`
	MQTT      MQTTConfig      `yaml:"mqtt" json:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Data      DataConfig      `yaml:"data" json:"data"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings. A zero port disables the server.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port" json:"http_port"`
}

// LinkConfig describes the serial device carrying the wireless link.
type LinkConfig struct {
	// Port is an explicit device path. When empty, ScanPatterns are matched
	// against the ports the OS reports.
	Port             string   `yaml:"port,omitempty" json:"port,omitempty"`
	ScanPatterns     []string `yaml:"scan_patterns,omitempty" json:"scan_patterns,omitempty"`
	BaudRate         int      `yaml:"baud_rate" json:"baud_rate"`
	DataBits         int      `yaml:"data_bits" json:"data_bits"`
	StopBits         int      `yaml:"stop_bits" json:"stop_bits"`
	Parity           string   `yaml:"parity" json:"parity"`
	RescanIntervalMs int      `yaml:"rescan_interval_ms" json:"rescan_interval_ms"`
}

// RescanInterval returns the pause between scans as a duration.
func (c LinkConfig) RescanInterval() time.Duration {
	return time.Duration(c.RescanIntervalMs) * time.Millisecond
}

// ControlConfig holds control loop timings.
type ControlConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms" json:"tick_interval_ms"`
	SettleDelayMs  int `yaml:"settle_delay_ms" json:"settle_delay_ms"`
}

func (c ControlConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c ControlConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// ZeroMQConfig holds ZeroMQ settings
type ZeroMQConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address" json:"publish_bind_address"`
	ControlBindAddress string `yaml:"control_bind_address" json:"control_bind_address"`
}

// MQTTConfig holds settings for the MQTT telemetry sink.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
}

// TelemetryConfig sizes the telemetry dispatch pool.
type TelemetryConfig struct {
	Workers   int `yaml:"workers" json:"workers"`
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// DataConfig holds data directory settings
type DataConfig struct {
	Directory   string `yaml:"directory" json:"directory"`
	ProfileFile string `yaml:"profile_file" json:"profile_file"`
}

// Defaults for zero-valued settings.
const (
	DefaultHTTPPort         = 8080
	DefaultLogLevel         = "info"
	DefaultBaudRate         = 9600
	DefaultRescanIntervalMs = 2000
	DefaultTickIntervalMs   = 100
	DefaultSettleDelayMs    = 100
	DefaultMQTTClientID     = "dina-bridge"
	DefaultMQTTTopicPrefix  = "dina/bridge"
	DefaultTelemetryWorkers = 1
	DefaultTelemetryQueue   = 64
)

// ApplyDefaults fills in zero-valued settings. The HTTP port is left alone
// because zero means disabled.
func (c *BridgeConfig) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Link.BaudRate == 0 {
		c.Link.BaudRate = DefaultBaudRate
	}
	if c.Link.RescanIntervalMs == 0 {
		c.Link.RescanIntervalMs = DefaultRescanIntervalMs
	}
	if c.Control.TickIntervalMs == 0 {
		c.Control.TickIntervalMs = DefaultTickIntervalMs
	}
	if c.Control.SettleDelayMs == 0 {
		c.Control.SettleDelayMs = DefaultSettleDelayMs
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultMQTTClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
	if c.Telemetry.Workers == 0 {
		c.Telemetry.Workers = DefaultTelemetryWorkers
	}
	if c.Telemetry.QueueSize == 0 {
		c.Telemetry.QueueSize = DefaultTelemetryQueue
	}
}
