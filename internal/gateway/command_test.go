package gateway

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sangit/relaygate/internal/infrastructure/config"
	"github.com/sangit/relaygate/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func TestCommandGrammar(t *testing.T) {
	registry := NewRegistry(10)
	router := NewCommandRouter(registry, testLogger())

	tests := []struct {
		token string
		valid bool
	}{
		{token: "relay1_on", valid: true},
		{token: "relay9_off", valid: true},
		{token: "relay10_on", valid: true},
		{token: "relay49_off", valid: true},
		{token: "relay50_on", valid: true},
		{token: "relay51_off", valid: true},
		{token: "relay52_on", valid: false},
		{token: "relay0_on", valid: false},
		{token: "relay01_on", valid: false},
		{token: "relay511_on", valid: false},
		{token: "relay1_toggle", valid: false},
		{token: "relay_on", valid: false},
		{token: "RELAY1_ON", valid: false},
		{token: " relay1_on", valid: false},
		{token: "relay1_on ", valid: false},
		{token: "relay1_on\nrelay2_on", valid: false},
		{token: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			err := router.IssueCommand("esp32-A", tt.token)
			if tt.valid {
				// Grammar passed; with no live device the next failure
				// must be the offline drop, not a grammar rejection.
				if !errors.Is(err, ErrDeviceOffline) {
					t.Errorf("IssueCommand(%q) error = %v, want ErrDeviceOffline", tt.token, err)
				}
			} else {
				if !errors.Is(err, ErrRejectedCommand) {
					t.Errorf("IssueCommand(%q) error = %v, want ErrRejectedCommand", tt.token, err)
				}
			}
		})
	}
}

func TestCommandDeliveredVerbatim(t *testing.T) {
	registry := NewRegistry(10)
	router := NewCommandRouter(registry, testLogger())

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	sess := NewSession(server)
	if err := registry.Register("esp32-A", sess); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	lines := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(client).ReadString('\n')
		if err != nil {
			return
		}
		lines <- line
	}()

	if err := router.IssueCommand("esp32-A", "relay3_on"); err != nil {
		t.Fatalf("IssueCommand() error = %v", err)
	}

	select {
	case line := <-lines:
		if got := strings.TrimSuffix(line, "\n"); got != "relay3_on" {
			t.Errorf("device received %q, want relay3_on", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("device never received the command")
	}
}

func TestCommandToDeadConnection(t *testing.T) {
	registry := NewRegistry(10)
	router := NewCommandRouter(registry, testLogger())

	client, server := net.Pipe()
	sess := NewSession(server)
	if err := registry.Register("esp32-A", sess); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	client.Close()
	server.Close()

	if err := router.IssueCommand("esp32-A", "relay1_off"); err == nil {
		t.Error("IssueCommand() to a dead connection succeeded, want error")
	}
}
