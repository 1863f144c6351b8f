package relay

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier receives the full configuration snapshot after every mutation.
// The API layer implements it to broadcast to connected dashboards.
type Notifier interface {
	ConfigChanged(snapshot map[string]Config)
}

// Pusher delivers a device's configuration to its live connection, if any.
// The gateway implements it; pushing to an offline device is a no-op.
type Pusher interface {
	PushConfig(deviceID string, cfg Config)
}

// Store holds the per-device relay configuration for the running process.
//
// The in-memory mapping is the source of truth; every mutation persists
// the whole mapping through the Repository. A failed persist is logged
// and the mutation still succeeds (the config is lost on restart, which
// is an accepted degradation).
//
// All public methods are safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	configs      map[string]Config
	repo         Repository
	defaultSlots int
	logger       Logger
	notifier     Notifier
	pusher       Pusher
}

// NewStore creates a configuration store. defaultSlots is how many slots
// EnsureDefaults provisions for a device never seen before.
func NewStore(repo Repository, defaultSlots int) *Store {
	return &Store{
		configs:      make(map[string]Config),
		repo:         repo,
		defaultSlots: defaultSlots,
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetNotifier sets the observer broadcast port.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetPusher sets the device config-push port.
func (s *Store) SetPusher(p Pusher) {
	s.pusher = p
}

// Load populates the store from the repository. Call once on startup.
func (s *Store) Load(ctx context.Context) error {
	configs, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading relay config: %w", err)
	}

	s.mu.Lock()
	s.configs = configs
	count := len(configs)
	s.mu.Unlock()

	s.logger.Info("relay config loaded", "devices", count)
	return nil
}

// EnsureDefaults returns the device's configuration, creating and
// persisting a default slot set on first sight.
//
// The default set is relay1..relayN with sequential GPIOs 0..N-1 and
// category "relay". Idempotent: an existing configuration is returned
// unchanged and nothing is written.
func (s *Store) EnsureDefaults(ctx context.Context, deviceID string) Config {
	s.mu.Lock()
	if cfg, ok := s.configs[deviceID]; ok {
		out := cfg.Clone()
		s.mu.Unlock()
		return out
	}

	cfg := make(Config, s.defaultSlots)
	for i := 1; i <= s.defaultSlots; i++ {
		cfg[fmt.Sprintf("relay%d", i)] = Descriptor{
			Name:     fmt.Sprintf("Relay %d", i),
			GPIO:     i - 1,
			Category: CategoryRelay,
		}
	}
	s.configs[deviceID] = cfg
	out := cfg.Clone()
	s.mu.Unlock()

	s.logger.Info("default relay config created", "device", deviceID, "slots", s.defaultSlots)
	s.persist(ctx)
	s.notify()
	return out
}

// Get returns the device's configuration, or false if the device has
// never registered. The returned config is a copy.
func (s *Store) Get(deviceID string) (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[deviceID]
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// Snapshot returns a copy of the full device -> configuration mapping.
func (s *Store) Snapshot() map[string]Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked copies the mapping. Caller must hold s.mu.
func (s *Store) snapshotLocked() map[string]Config {
	out := make(map[string]Config, len(s.configs))
	for id, cfg := range s.configs {
		out[id] = cfg.Clone()
	}
	return out
}

// UpsertSlot inserts or replaces one slot of a device's configuration.
//
// The slot key, descriptor fields, and GPIO uniqueness are validated
// first; any failure leaves the configuration unchanged. On success the
// whole mapping is persisted, observers are notified, and the updated
// configuration is pushed to the device if currently connected.
//
// Returns the full post-mutation snapshot.
func (s *Store) UpsertSlot(ctx context.Context, deviceID, slotKey, name string, gpio int, category Category) (map[string]Config, error) {
	if !IsValidSlotKey(slotKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlotKey, slotKey)
	}
	if err := ValidateDescriptor(name, gpio, category); err != nil {
		return nil, err
	}

	s.mu.Lock()
	cfg, ok := s.configs[deviceID]
	if !ok {
		cfg = make(Config)
		s.configs[deviceID] = cfg
	}

	if conflict := GPIOConflict(cfg, slotKey, gpio); conflict != "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: gpio %d already used by %q", ErrGPIOConflict, gpio, conflict)
	}

	cfg[slotKey] = Descriptor{Name: name, GPIO: gpio, Category: category}
	snapshot := s.snapshotLocked()
	pushed := cfg.Clone()
	s.mu.Unlock()

	s.logger.Info("relay slot updated",
		"device", deviceID,
		"slot", slotKey,
		"gpio", gpio,
		"category", category,
	)
	s.persist(ctx)
	s.notify()
	s.push(deviceID, pushed)
	return snapshot, nil
}

// DeleteSlot removes one slot of a device's configuration. Deletion is
// idempotent: removing an absent slot is not an error, and deleting from
// a device never seen before records an empty configuration for it.
// Side effects match UpsertSlot: every call persists, broadcasts the
// snapshot, and pushes the device's config to its live connection.
//
// Returns the full post-mutation snapshot.
func (s *Store) DeleteSlot(ctx context.Context, deviceID, slotKey string) map[string]Config {
	s.mu.Lock()
	cfg, ok := s.configs[deviceID]
	if !ok {
		cfg = Config{}
		s.configs[deviceID] = cfg
	}
	delete(cfg, slotKey)
	snapshot := s.snapshotLocked()
	pushed := cfg.Clone()
	s.mu.Unlock()

	s.logger.Info("relay slot deleted", "device", deviceID, "slot", slotKey)
	s.persist(ctx)
	s.notify()
	s.push(deviceID, pushed)
	return snapshot
}

// persist writes the full mapping through the repository.
// Failure is non-fatal: the in-memory state stays authoritative.
func (s *Store) persist(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error("persisting relay config failed, in-memory state remains authoritative", "error", err)
	}
}

// notify hands the current snapshot to the observer port, if wired.
func (s *Store) notify() {
	if s.notifier == nil {
		return
	}
	s.notifier.ConfigChanged(s.Snapshot())
}

// push hands a device's configuration to the gateway port, if wired.
func (s *Store) push(deviceID string, cfg Config) {
	if s.pusher == nil {
		return
	}
	s.pusher.PushConfig(deviceID, cfg)
}
