package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTempConfig writes a config file into a temp dir and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relaygate.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, "# empty config, defaults apply\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Gateway.Port != 5000 {
		t.Errorf("Gateway.Port = %d, want 5000", cfg.Gateway.Port)
	}
	if cfg.Gateway.MaxDevices != 50 {
		t.Errorf("Gateway.MaxDevices = %d, want 50", cfg.Gateway.MaxDevices)
	}
	if cfg.Gateway.IdleTimeout != 60 {
		t.Errorf("Gateway.IdleTimeout = %d, want 60", cfg.Gateway.IdleTimeout)
	}
	if cfg.Gateway.DefaultSlots != 8 {
		t.Errorf("Gateway.DefaultSlots = %d, want 8", cfg.Gateway.DefaultSlots)
	}
	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want 3000", cfg.API.Port)
	}
	if cfg.WebSocket.HistoryLimit != 50 {
		t.Errorf("WebSocket.HistoryLimit = %d, want 50", cfg.WebSocket.HistoryLimit)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = true, want false by default")
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled = true, want false by default")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
gateway:
  port: 6000
  max_devices: 10
  default_slots: 4
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Gateway.Port != 6000 {
		t.Errorf("Gateway.Port = %d, want 6000", cfg.Gateway.Port)
	}
	if cfg.Gateway.MaxDevices != 10 {
		t.Errorf("Gateway.MaxDevices = %d, want 10", cfg.Gateway.MaxDevices)
	}
	if cfg.Gateway.DefaultSlots != 4 {
		t.Errorf("Gateway.DefaultSlots = %d, want 4", cfg.Gateway.DefaultSlots)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep defaults
	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want 3000", cfg.API.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "gateway:\n  port: 6000\n")

	t.Setenv("RELAYGATE_GATEWAY_PORT", "7000")
	t.Setenv("RELAYGATE_DATABASE_PATH", "/tmp/relaygate-test.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Gateway.Port != 7000 {
		t.Errorf("Gateway.Port = %d, want env override 7000", cfg.Gateway.Port)
	}
	if cfg.Database.Path != "/tmp/relaygate-test.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "gateway: [not a mapping\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "gateway port out of range",
			mutate:  func(c *Config) { c.Gateway.Port = 70000 },
			wantErr: "gateway.port",
		},
		{
			name:    "zero max devices",
			mutate:  func(c *Config) { c.Gateway.MaxDevices = 0 },
			wantErr: "gateway.max_devices",
		},
		{
			name:    "zero idle timeout",
			mutate:  func(c *Config) { c.Gateway.IdleTimeout = 0 },
			wantErr: "gateway.idle_timeout",
		},
		{
			name:    "default slots beyond relay range",
			mutate:  func(c *Config) { c.Gateway.DefaultSlots = 52 },
			wantErr: "gateway.default_slots",
		},
		{
			name:    "api port collides with gateway port",
			mutate:  func(c *Config) { c.API.Port = c.Gateway.Port },
			wantErr: "api.port must differ",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "empty config store path",
			mutate:  func(c *Config) { c.ConfigStore.Path = "" },
			wantErr: "config_store.path",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
