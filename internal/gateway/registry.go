package gateway

import (
	"fmt"
	"sync"
)

// Registry maps device identifiers to their live connection.
//
// At most one session per device: a new registration for a known
// identifier replaces the previous session without closing it (the old
// connection dies on its own through the idle timeout or a read error).
// Registrations for new identifiers beyond the capacity limit are
// rejected so a misbehaving fleet cannot exhaust the process.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	maxDevices int
}

// NewRegistry creates a registry bounded at maxDevices live devices.
func NewRegistry(maxDevices int) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		maxDevices: maxDevices,
	}
}

// Register installs sess as the live connection for deviceID.
//
// Re-registering a known identifier always succeeds and replaces the
// stored session. A new identifier is rejected with ErrCapacityExceeded
// once the registry is full; capacity never evicts an existing device.
func (r *Registry) Register(deviceID string, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.sessions[deviceID]; !known && len(r.sessions) >= r.maxDevices {
		return fmt.Errorf("%w: %d devices registered", ErrCapacityExceeded, len(r.sessions))
	}
	r.sessions[deviceID] = sess
	return nil
}

// Lookup returns the live session for deviceID, or false if the device
// is not currently connected.
func (r *Registry) Lookup(deviceID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[deviceID]
	return sess, ok
}

// Unregister removes deviceID only if sess is still the stored session.
// A disconnect notification for an old connection arriving after the
// device has reconnected must not evict the new session.
func (r *Registry) Unregister(deviceID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[deviceID]; ok && current == sess {
		delete(r.sessions, deviceID)
	}
}

// Count returns the number of currently registered devices.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Devices returns the identifiers of all currently registered devices.
func (r *Registry) Devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
