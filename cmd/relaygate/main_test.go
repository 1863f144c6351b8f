package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sangit/relaygate/internal/relay"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("RELAYGATE_CONFIG")
	defer os.Setenv("RELAYGATE_CONFIG", originalEnv)

	os.Setenv("RELAYGATE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
gateway:
  host: "127.0.0.1"
  port: 5000
  max_devices: 50
  idle_timeout: 60
  default_slots: 8

api:
  host: "127.0.0.1"
  port: 3000
  timeouts:
    read: 30
    write: 60
    idle: 120

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

config_store:
  path: "` + filepath.Join(tmpDir, "relay_config.json") + `"

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("RELAYGATE_CONFIG")
	defer os.Setenv("RELAYGATE_CONFIG", originalEnv)
	os.Setenv("RELAYGATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("RELAYGATE_CONFIG")
	defer os.Setenv("RELAYGATE_CONFIG", originalEnv)

	os.Unsetenv("RELAYGATE_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("RELAYGATE_CONFIG")
	defer os.Setenv("RELAYGATE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("RELAYGATE_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown runs the full stack with MQTT and
// InfluxDB disabled, then shuts down on context expiry.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
gateway:
  host: "127.0.0.1"
  port: 15000
  max_devices: 50
  idle_timeout: 60
  default_slots: 8

api:
  host: "127.0.0.1"
  port: 13000
  timeouts:
    read: 30
    write: 60
    idle: 120

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

config_store:
  path: "` + filepath.Join(tmpDir, "relay_config.json") + `"

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("RELAYGATE_CONFIG")
	defer os.Setenv("RELAYGATE_CONFIG", originalEnv)
	os.Setenv("RELAYGATE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Logf("run() returned error: %v (ports may be in use)", err)
	}
}

// TestMultiNotifier verifies all registered notifiers receive the snapshot.
func TestMultiNotifier(t *testing.T) {
	var first, second int

	m := multiNotifier{
		notifierFunc(func() { first++ }),
		notifierFunc(func() { second++ }),
	}

	m.ConfigChanged(nil)

	if first != 1 || second != 1 {
		t.Errorf("notifier calls = (%d, %d), want (1, 1)", first, second)
	}
}

type notifierFunc func()

func (f notifierFunc) ConfigChanged(map[string]relay.Config) { f() }
