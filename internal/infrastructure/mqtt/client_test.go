package mqtt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sangit/relaygate/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device state", topics.DeviceState("esp32-01"), "relaygate/state/esp32-01"},
		{"device config", topics.DeviceConfig("esp32-01"), "relaygate/config/esp32-01"},
		{"system status", topics.SystemStatus(), "relaygate/system/status"},
		{"all device states", topics.AllDeviceStates(), "relaygate/state/+"},
		{"all device configs", topics.AllDeviceConfigs(), "relaygate/config/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain broker URL", func(t *testing.T) {
		cfg := config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{
				Host:     "broker.local",
				Port:     1883,
				ClientID: "relaygate",
			},
			Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		}

		opts := buildClientOptions(cfg)

		if len(opts.Servers) != 1 {
			t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
		}
		if got := opts.Servers[0].String(); got != "tcp://broker.local:1883" {
			t.Errorf("broker URL = %q, want tcp://broker.local:1883", got)
		}
		if opts.ClientID != "relaygate" {
			t.Errorf("client ID = %q, want relaygate", opts.ClientID)
		}
		if opts.TLSConfig != nil {
			t.Error("expected no TLS config for plain connection")
		}
	})

	t.Run("tls broker URL", func(t *testing.T) {
		cfg := config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{
				Host:     "broker.local",
				Port:     8883,
				TLS:      true,
				ClientID: "relaygate",
			},
			Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		}

		opts := buildClientOptions(cfg)

		if got := opts.Servers[0].String(); got != "ssl://broker.local:8883" {
			t.Errorf("broker URL = %q, want ssl://broker.local:8883", got)
		}
		if opts.TLSConfig == nil {
			t.Fatal("expected TLS config")
		}
		if opts.TLSConfig.MinVersion != tlsMinVersion {
			t.Errorf("TLS min version = %x, want %x", opts.TLSConfig.MinVersion, tlsMinVersion)
		}
	})

	t.Run("credentials applied when set", func(t *testing.T) {
		cfg := config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883, ClientID: "relaygate"},
			Auth:   config.MQTTAuthConfig{Username: "gateway", Password: "secret"},
		}

		opts := buildClientOptions(cfg)

		if opts.Username != "gateway" {
			t.Errorf("username = %q, want gateway", opts.Username)
		}
		if opts.Password != "secret" {
			t.Errorf("password not applied")
		}
	})

	t.Run("anonymous when no username", func(t *testing.T) {
		cfg := config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883, ClientID: "relaygate"},
		}

		opts := buildClientOptions(cfg)

		if opts.Username != "" {
			t.Errorf("expected empty username, got %q", opts.Username)
		}
	})
}

func TestStatusPayloads(t *testing.T) {
	t.Run("online payload", func(t *testing.T) {
		var payload struct {
			Status    string `json:"status"`
			ClientID  string `json:"client_id"`
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal([]byte(buildOnlinePayload("relaygate")), &payload); err != nil {
			t.Fatalf("online payload is not valid JSON: %v", err)
		}
		if payload.Status != "online" {
			t.Errorf("status = %q, want online", payload.Status)
		}
		if payload.ClientID != "relaygate" {
			t.Errorf("client_id = %q, want relaygate", payload.ClientID)
		}
		if payload.Timestamp == "" {
			t.Error("timestamp missing")
		}
	})

	t.Run("offline payload", func(t *testing.T) {
		var payload struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(buildOfflinePayload("relaygate")), &payload); err != nil {
			t.Fatalf("offline payload is not valid JSON: %v", err)
		}
		if payload.Status != "offline" {
			t.Errorf("status = %q, want offline", payload.Status)
		}
		if payload.Reason != "graceful_shutdown" {
			t.Errorf("reason = %q, want graceful_shutdown", payload.Reason)
		}
	})

	t.Run("lwt payload reason", func(t *testing.T) {
		opts := buildClientOptions(config.MQTTConfig{
			Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 1883, ClientID: "relaygate"},
		})
		configureLWT(opts, "relaygate")

		if opts.WillTopic != "relaygate/system/status" {
			t.Errorf("will topic = %q, want relaygate/system/status", opts.WillTopic)
		}
		if !strings.Contains(string(opts.WillPayload), `"reason":"unexpected_disconnect"`) {
			t.Errorf("will payload missing crash reason: %s", opts.WillPayload)
		}
		if !opts.WillRetained {
			t.Error("will message should be retained")
		}
	})
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic: got %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("relaygate/state/x", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("qos 3: got %v, want ErrInvalidQoS", err)
	}
}
