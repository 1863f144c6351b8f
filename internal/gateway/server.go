package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sangit/relaygate/internal/infrastructure/config"
	"github.com/sangit/relaygate/internal/infrastructure/logging"
	"github.com/sangit/relaygate/internal/relay"
)

// maxLineBytes caps a single inbound line. Device records are small;
// anything past this is a protocol violation and drops the connection.
const maxLineBytes = 64 * 1024

// Broadcaster fans a raw device state report out to all dashboard
// observers. The api package implements it with the WebSocket hub.
type Broadcaster interface {
	DeviceState(deviceID string, report map[string]any)
}

// StatePublisher republishes relay values to an external broker.
type StatePublisher interface {
	PublishState(deviceID string, values map[string]int)
}

// MetricsWriter records relay values in a time-series store.
type MetricsWriter interface {
	WriteRelayState(deviceID string, values map[string]int)
}

// Deps holds the dependencies required by the gateway server.
type Deps struct {
	Config   config.GatewayConfig
	Logger   *logging.Logger
	Registry *Registry
	Store    *relay.Store
	Events   relay.EventLog
}

// Server is the device-facing TCP listener.
//
// Each accepted connection gets its own goroutine running the session
// loop; shared state (the registry, the configuration store, the event
// log) is guarded by its owner. The server implements the relay
// package's config-push port so operator edits reach live devices.
type Server struct {
	cfg      config.GatewayConfig
	logger   *logging.Logger
	registry *Registry
	store    *relay.Store
	events   relay.EventLog

	broadcaster Broadcaster
	publisher   StatePublisher
	metrics     MetricsWriter

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
	closed   bool

	wg sync.WaitGroup
}

// New creates a gateway server with the given dependencies.
//
// The server is not listening until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("relay config store is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("relay event log is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		store:    deps.Store,
		events:   deps.Events,
		sessions: make(map[*Session]struct{}),
	}, nil
}

// SetBroadcaster wires the dashboard fan-out port. Optional; without it
// state reports are logged but not pushed to observers.
func (s *Server) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetPublisher wires the optional MQTT republish port.
func (s *Server) SetPublisher(p StatePublisher) {
	s.publisher = p
}

// SetMetrics wires the optional time-series write port.
func (s *Server) SetMetrics(m MetricsWriter) {
	s.metrics = m
}

// Addr returns the listener's bound address, or empty before Start.
// Useful when the configured port is 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start opens the TCP listener and begins accepting device connections
// in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("gateway listening", "address", listener.Addr().String(), "max_devices", s.cfg.MaxDevices)

	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)
	return nil
}

// Close stops accepting connections, closes all live sessions, and
// waits for their handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	open := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	s.logger.Info("gateway shutting down", "sessions", len(open))

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, sess := range open {
		sess.Close() //nolint:errcheck // Best effort teardown
	}
	s.wg.Wait()
	return err
}

// HealthCheck verifies the listener is up.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("gateway health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.listener == nil {
		return fmt.Errorf("gateway not listening")
	}
	return nil
}

// PushConfig delivers a configuration snapshot to the device's live
// connection. A disconnected device is a no-op; it receives current
// config on its next registration.
func (s *Server) PushConfig(deviceID string, cfg relay.Config) {
	sess, ok := s.registry.Lookup(deviceID)
	if !ok {
		return
	}
	if err := sess.SendConfig(cfg); err != nil {
		s.logger.Warn("config push failed", "device", deviceID, "error", err)
	}
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sess := NewSession(conn)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close() //nolint:errcheck // Refusing connection during shutdown
		return
	}
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("device connected", "session", sess.ID(), "remote", sess.RemoteAddr())

	defer func() {
		sess.Close() //nolint:errcheck // Already closed on the error paths
		if id := sess.DeviceID(); id != "" {
			s.registry.Unregister(id, sess)
		}
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		s.logger.Debug("device disconnected", "session", sess.ID(), "device", sess.DeviceID())
	}()

	idle := time.Duration(s.cfg.IdleTimeout) * time.Second
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			return
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					s.logger.Info("idle timeout, dropping device connection",
						"session", sess.ID(), "device", sess.DeviceID())
					return
				}
				s.logger.Debug("device read failed", "session", sess.ID(), "error", err)
			}
			return
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if terminate := s.handleLine(ctx, sess, line); terminate {
			return
		}
	}
}

// handleLine processes one inbound record. A true return terminates the
// connection; malformed payloads are dropped without affecting it.
func (s *Server) handleLine(ctx context.Context, sess *Session, line []byte) bool {
	var msg map[string]any
	if err := json.Unmarshal(line, &msg); err != nil {
		s.logger.Debug("dropping malformed device message", "session", sess.ID(), "error", err)
		return false
	}

	if msgType, _ := msg["type"].(string); msgType == "register" {
		device, _ := msg["device"].(string)
		if device == "" {
			s.logger.Debug("dropping registration without device id", "session", sess.ID())
			return false
		}
		return s.handleRegister(ctx, sess, device)
	}

	if device, _ := msg["device"].(string); device != "" {
		s.handleStateReport(ctx, sess, device, msg)
		return false
	}

	s.logger.Debug("dropping unidentified device message", "session", sess.ID())
	return false
}

// handleRegister installs the session in the registry and answers with
// the device's current (or freshly provisioned) configuration.
func (s *Server) handleRegister(ctx context.Context, sess *Session, device string) bool {
	if err := s.registry.Register(device, sess); err != nil {
		s.logger.Warn("registration rejected", "device", device, "remote", sess.RemoteAddr(), "error", err)
		return true
	}
	sess.setDeviceID(device)

	cfg := s.store.EnsureDefaults(ctx, device)
	if err := sess.SendConfig(cfg); err != nil {
		s.logger.Warn("config push on registration failed", "device", device, "error", err)
		return true
	}

	s.logger.Info("device registered", "device", device, "remote", sess.RemoteAddr(), "slots", len(cfg))
	return false
}

// handleStateReport re-affirms liveness, persists any relay values in
// the report, and fans the raw report out to observers.
func (s *Server) handleStateReport(ctx context.Context, sess *Session, device string, msg map[string]any) {
	if err := s.registry.Register(device, sess); err != nil {
		// At capacity the report is ignored but the connection stays open.
		s.logger.Warn("state report from over-capacity device ignored", "device", device, "error", err)
		return
	}
	sess.setDeviceID(device)

	values := extractRelayValues(msg)
	if len(values) > 0 {
		if err := s.events.Append(ctx, device, values); err != nil {
			s.logger.Error("appending relay event failed", "device", device, "error", err)
		}
		if s.publisher != nil {
			s.publisher.PublishState(device, values)
		}
		if s.metrics != nil {
			s.metrics.WriteRelayState(device, values)
		}
	}

	// Reports with no relay fields still reach observers: dashboards
	// treat any device message as a liveness signal.
	if s.broadcaster != nil {
		s.broadcaster.DeviceState(device, msg)
	}
}

// extractRelayValues pulls relay<N> fields with N within slot range out
// of a state report. Non-numeric values are ignored.
func extractRelayValues(msg map[string]any) map[string]int {
	values := make(map[string]int)
	for key, raw := range msg {
		n, ok := relay.ParseSlotKey(key)
		if !ok || n > relay.MaxSlot {
			continue
		}
		num, ok := raw.(float64)
		if !ok {
			continue
		}
		values[key] = int(num)
	}
	return values
}
