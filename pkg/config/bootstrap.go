package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the name of the bridge config inside the config directory.
const BootstrapFileName = "bridge_config.yaml"

// LoadBridgeConfig loads configDir/bridge_config.yaml, applies defaults and
// validates the result.
func LoadBridgeConfig(configDir string) (*BridgeConfig, error) {
	path := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading bridge config file '%s': %w", path, err)
	}

	cfg, err := ParseBridgeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("bridge config file '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseBridgeConfig parses YAML bytes, applies defaults and validates.
func ParseBridgeConfig(data []byte) (*BridgeConfig, error) {
	var cfg BridgeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing bridge config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields.
func (c *BridgeConfig) Validate() error {
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bridge config: data.directory")
	}
	if c.Data.ProfileFile == "" {
		return fmt.Errorf("missing required field in bridge config: data.profile_file")
	}
	if c.Link.Port == "" && len(c.Link.ScanPatterns) == 0 {
		return fmt.Errorf("missing required field in bridge config: link.port or link.scan_patterns")
	}
	for _, p := range c.Link.ScanPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid link.scan_patterns entry %q: %w", p, err)
		}
	}
	if c.Control.TickIntervalMs < 0 || c.Control.SettleDelayMs < 0 {
		return fmt.Errorf("control intervals must not be negative")
	}
	if c.ZeroMQ.Enabled {
		if c.ZeroMQ.PublishBindAddress == "" {
			return fmt.Errorf("missing required field in bridge config: zeromq.publish_bind_address")
		}
		if c.ZeroMQ.ControlBindAddress == "" {
			return fmt.Errorf("missing required field in bridge config: zeromq.control_bind_address")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("missing required field in bridge config: mqtt.broker")
	}
	if c.Telemetry.Workers < 0 || c.Telemetry.QueueSize < 0 {
		return fmt.Errorf("telemetry workers and queue_size must not be negative")
	}
	return nil
}

// ProfilePath returns the full path of the drive profile file.
func (c *BridgeConfig) ProfilePath() string {
	return filepath.Join(c.Data.Directory, c.Data.ProfileFile)
}
