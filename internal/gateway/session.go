package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sangit/relaygate/internal/relay"
)

// writeTimeout bounds a single line write so one stalled device cannot
// block a config broadcast or an operator command indefinitely.
const writeTimeout = 10 * time.Second

// configMessage is the wire shape of a configuration push.
type configMessage struct {
	Type   string       `json:"type"`
	Config relay.Config `json:"config"`
}

// Session wraps one device TCP connection.
//
// Reads happen on the connection's own goroutine inside the server loop;
// writes can come from anywhere (config pushes, operator commands) and
// are serialized through the session's write mutex.
type Session struct {
	id   string
	conn net.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	deviceID string
}

// NewSession wraps a connection. The gateway server creates sessions
// for accepted connections; the constructor is exported so other
// packages' tests can stand in for a live device.
func NewSession(conn net.Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID returns the session's unique identifier, used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer address of the underlying connection.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// DeviceID returns the identifier the device last registered under, or
// empty before the first identified message.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Session) setDeviceID(id string) {
	s.mu.Lock()
	s.deviceID = id
	s.mu.Unlock()
}

// WriteLine writes a single newline-terminated line to the device.
func (s *Session) WriteLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// SendConfig pushes a configuration snapshot to the device as a single
// line-terminated JSON record.
func (s *Session) SendConfig(cfg relay.Config) error {
	payload, err := json.Marshal(configMessage{Type: "config", Config: cfg})
	if err != nil {
		return fmt.Errorf("marshalling config push: %w", err)
	}
	return s.WriteLine(string(payload))
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Session) Close() error {
	return s.conn.Close()
}
