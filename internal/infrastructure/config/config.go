package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the relay gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Database    DatabaseConfig    `yaml:"database"`
	ConfigStore ConfigStoreConfig `yaml:"config_store"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GatewayConfig contains the device-facing TCP listener settings.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxDevices caps the number of simultaneously registered devices.
	// Registrations beyond the cap are rejected and the connection closed.
	MaxDevices int `yaml:"max_devices"`

	// IdleTimeout is the per-connection inactivity limit in seconds.
	// Any inbound line resets it; expiry tears the connection down.
	IdleTimeout int `yaml:"idle_timeout"`

	// DefaultSlots is the number of relay slots provisioned for a device
	// on its first registration (relay1..relayN, GPIOs 0..N-1).
	DefaultSlots int `yaml:"default_slots"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	StaticDir string           `yaml:"static_dir"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`

	// HistoryLimit is how many recent relay events a client receives
	// immediately after connecting.
	HistoryLimit int `yaml:"history_limit"`
}

// DatabaseConfig contains SQLite database settings for the relay event log.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ConfigStoreConfig contains settings for the per-device relay
// configuration document.
type ConfigStoreConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig contains optional MQTT fan-out settings.
// When enabled, state reports and configuration changes are republished
// to an external broker for other consumers.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection backoff settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: RELAYGATE_SECTION_KEY
// For example: RELAYGATE_DATABASE_PATH, RELAYGATE_GATEWAY_PORT
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// Ports and limits mirror the reference deployment: devices on 5000,
// dashboard on 3000, 50 devices, 60 second idle timeout, 8 default slots.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			MaxDevices:   50,
			IdleTimeout:  60,
			DefaultSlots: 8,
		},
		API: APIConfig{
			Host:      "0.0.0.0",
			Port:      3000,
			StaticDir: "./public",
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 65536,
			PingInterval:   30,
			PongTimeout:    60,
			HistoryLimit:   50,
		},
		Database: DatabaseConfig{
			Path:        "./data/relaygate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		ConfigStore: ConfigStoreConfig{
			Path: "./data/relay_config.json",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "relaygate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RELAYGATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Gateway
	if v := os.Getenv("RELAYGATE_GATEWAY_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("RELAYGATE_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}

	// API
	if v := os.Getenv("RELAYGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("RELAYGATE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Persistence
	if v := os.Getenv("RELAYGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RELAYGATE_CONFIG_STORE_PATH"); v != "" {
		cfg.ConfigStore.Path = v
	}

	// MQTT
	if v := os.Getenv("RELAYGATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("RELAYGATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("RELAYGATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("RELAYGATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 1 and 65535")
	}
	if c.Gateway.MaxDevices < 1 {
		errs = append(errs, "gateway.max_devices must be at least 1")
	}
	if c.Gateway.IdleTimeout < 1 {
		errs = append(errs, "gateway.idle_timeout must be at least 1 second")
	}
	if c.Gateway.DefaultSlots < 1 || c.Gateway.DefaultSlots > 51 {
		errs = append(errs, "gateway.default_slots must be between 1 and 51")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Port == c.Gateway.Port {
		errs = append(errs, "api.port must differ from gateway.port")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.ConfigStore.Path == "" {
		errs = append(errs, "config_store.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
