package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Broker          BrokerConfig      `yaml:"broker"`
	Topics          TopicsConfig      `yaml:"topics"`
	Panel           PanelConfig       `yaml:"panel"`
	Lamp            LampConfig        `yaml:"lamp"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// BrokerConfig contains MQTT broker connection settings
type BrokerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	ClientID       string   `yaml:"client_id"` // Prefix, a random suffix is appended
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	QoS            int      `yaml:"qos"`
	KeepAlive      Duration `yaml:"keep_alive"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	PublishTimeout Duration `yaml:"publish_timeout"`
}

// TopicsConfig names the topics shared by the panel and the lamp
type TopicsConfig struct {
	Command string `yaml:"command"`
	Display string `yaml:"display"`
	Room    string `yaml:"room"` // Empty disables the room sensor topic
}

// PanelConfig contains the control panel settings
type PanelConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	DefaultValue  int      `yaml:"default_value"`
	Min           int      `yaml:"min"`
	Max           int      `yaml:"max"`
	Policy        string   `yaml:"policy"` // clamp or reject
	NotifyTimeout Duration `yaml:"notify_timeout"`
	RateLimitRPS  float64  `yaml:"rate_limit_rps"` // 0 = unlimited

	// Live publishing of slider changes
	Live         bool     `yaml:"live"`
	LiveStrategy string   `yaml:"live_strategy"` // immediate, quiet or interval
	LiveWindow   Duration `yaml:"live_window"`
}

// LampConfig contains the fixture daemon settings
type LampConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Name       string   `yaml:"name"`
	Interval   Duration `yaml:"interval"`
	InputScale float64  `yaml:"input_scale"`
	RoomColor  RGB      `yaml:"room_color"` // Used until the room topic reports
	Script     string   `yaml:"script"`     // Optional Lua color policy
}

// RGB is an 8-bit color
type RGB struct {
	R int `yaml:"r"`
	G int `yaml:"g"`
	B int `yaml:"b"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// Retention returns the retention period
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML, applying defaults
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	// Components are on unless switched off explicitly
	cfg := Config{
		Panel: PanelConfig{Enabled: true},
		Lamp:  LampConfig{Enabled: true},
	}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lumos.sqlite"
	}

	// Broker defaults
	if cfg.Broker.Host == "" {
		cfg.Broker.Host = "localhost"
	}
	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 1883
	}
	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = "lumos"
	}
	if cfg.Broker.KeepAlive == 0 {
		cfg.Broker.KeepAlive = Duration(60 * time.Second)
	}
	if cfg.Broker.ConnectTimeout == 0 {
		cfg.Broker.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.Broker.PublishTimeout == 0 {
		cfg.Broker.PublishTimeout = Duration(5 * time.Second)
	}

	// Topic defaults
	if cfg.Topics.Command == "" {
		cfg.Topics.Command = "paso"
	}
	if cfg.Topics.Display == "" {
		cfg.Topics.Display = "iot/to_ui"
	}

	// Panel defaults
	if cfg.Panel.Host == "" {
		cfg.Panel.Host = "0.0.0.0"
	}
	if cfg.Panel.Port == 0 {
		cfg.Panel.Port = 5000
	}
	if cfg.Panel.Max == 0 && cfg.Panel.Min == 0 {
		cfg.Panel.Max = 100
	}
	if cfg.Panel.DefaultValue == 0 {
		cfg.Panel.DefaultValue = (cfg.Panel.Min + cfg.Panel.Max) / 2
	}
	if cfg.Panel.Policy == "" {
		cfg.Panel.Policy = "clamp"
	}
	if cfg.Panel.NotifyTimeout == 0 {
		cfg.Panel.NotifyTimeout = Duration(5 * time.Second)
	}
	if cfg.Panel.LiveStrategy == "" {
		cfg.Panel.LiveStrategy = "quiet"
	}
	if cfg.Panel.LiveWindow == 0 {
		cfg.Panel.LiveWindow = Duration(300 * time.Millisecond)
	}

	// Lamp defaults
	if cfg.Lamp.Name == "" {
		cfg.Lamp.Name = "lampada1"
	}
	if cfg.Lamp.Interval == 0 {
		cfg.Lamp.Interval = Duration(1 * time.Second)
	}
	if cfg.Lamp.InputScale == 0 {
		cfg.Lamp.InputScale = 100
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks settings that have no sensible fallback
func (c *Config) Validate() error {
	if c.Panel.Min > c.Panel.Max {
		return fmt.Errorf("panel: min %d is greater than max %d", c.Panel.Min, c.Panel.Max)
	}
	if c.Panel.DefaultValue < c.Panel.Min || c.Panel.DefaultValue > c.Panel.Max {
		return fmt.Errorf("panel: default_value %d outside [%d, %d]", c.Panel.DefaultValue, c.Panel.Min, c.Panel.Max)
	}
	switch c.Panel.Policy {
	case "clamp", "reject":
	default:
		return fmt.Errorf("panel: unknown policy %q", c.Panel.Policy)
	}
	switch c.Panel.LiveStrategy {
	case "immediate", "quiet", "interval":
	default:
		return fmt.Errorf("panel: unknown live_strategy %q", c.Panel.LiveStrategy)
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		return fmt.Errorf("broker: qos must be 0, 1 or 2")
	}
	if c.Lamp.InputScale < 0 {
		return fmt.Errorf("lamp: input_scale must be positive")
	}
	for _, v := range []int{c.Lamp.RoomColor.R, c.Lamp.RoomColor.G, c.Lamp.RoomColor.B} {
		if v < 0 || v > 255 {
			return fmt.Errorf("lamp: room_color channels must be within [0, 255]")
		}
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
