package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Board  BoardConfig  `yaml:"board"`
	Flash  FlashConfig  `yaml:"flash"`
	Mock   MockConfig   `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`      // Empty selects the first enumerated port
	BaudRate int    `yaml:"baud_rate"` // Default 115200
}

// BoardConfig contains board-level driver settings.
type BoardConfig struct {
	Polarity     string        `yaml:"polarity"`      // active_low_idle or active_high_idle
	SettleDelay  time.Duration `yaml:"settle_delay"`  // Boot settle time after opening the port
	ExpectedName string        `yaml:"expected_name"` // Empty disables the identity check
}

// FlashConfig contains the external firmware flashing command. The command
// is a template; {port} and {hardware} are replaced before execution.
type FlashConfig struct {
	Command string `yaml:"command"`
}

// MockConfig contains the identity the mock board reports.
type MockConfig struct {
	Name            string `yaml:"name"`
	HardwareVersion string `yaml:"hardware_version"`
	SoftwareVersion string `yaml:"software_version"`
	ChannelCount    int    `yaml:"channel_count"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "", // Auto-detect
			BaudRate: 115200,
		},
		Board: BoardConfig{
			Polarity:     "active_low_idle",
			SettleDelay:  2 * time.Second,
			ExpectedName: "open_drop",
		},
		Mock: MockConfig{
			Name:            "open_drop",
			HardwareVersion: "1.1",
			SoftwareVersion: "0.0.0",
			ChannelCount:    68,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if
// missing. Serial.Port and Board.ExpectedName are left alone: empty values
// are meaningful there (auto-detect and check-disabled respectively).
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Board.Polarity == "" {
		c.Board.Polarity = def.Board.Polarity
	}
	if c.Board.SettleDelay == 0 {
		c.Board.SettleDelay = def.Board.SettleDelay
	}

	if c.Mock.Name == "" {
		c.Mock.Name = def.Mock.Name
	}
	if c.Mock.HardwareVersion == "" {
		c.Mock.HardwareVersion = def.Mock.HardwareVersion
	}
	if c.Mock.SoftwareVersion == "" {
		c.Mock.SoftwareVersion = def.Mock.SoftwareVersion
	}
	if c.Mock.ChannelCount == 0 {
		c.Mock.ChannelCount = def.Mock.ChannelCount
	}
}
