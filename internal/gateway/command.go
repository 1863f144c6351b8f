package gateway

import (
	"fmt"
	"regexp"

	"github.com/sangit/relaygate/internal/infrastructure/logging"
)

// commandPattern is the full grammar for operator relay commands:
// relay<N>_on or relay<N>_off with N in [1, 51] and no leading zeros.
var commandPattern = regexp.MustCompile(`^relay([1-9]|[1-4][0-9]|5[01])_(on|off)$`)

// CommandRouter validates operator-issued relay commands and forwards
// them to the target device's live connection.
//
// Delivery is fire and forget: an offline device or a failed write
// drops the command with no queueing and no retry.
type CommandRouter struct {
	registry *Registry
	logger   *logging.Logger
}

// NewCommandRouter creates a router delivering through the registry.
func NewCommandRouter(registry *Registry, logger *logging.Logger) *CommandRouter {
	return &CommandRouter{registry: registry, logger: logger}
}

// IssueCommand validates token and writes it verbatim as one line to
// the device's connection.
//
// Returns ErrRejectedCommand for tokens outside the grammar and
// ErrDeviceOffline when the device has no live connection. Callers
// treat both as a silent drop; the error exists for logging and tests.
func (r *CommandRouter) IssueCommand(deviceID, token string) error {
	if !commandPattern.MatchString(token) {
		return fmt.Errorf("%w: %q", ErrRejectedCommand, token)
	}

	sess, ok := r.registry.Lookup(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceOffline, deviceID)
	}

	if err := sess.WriteLine(token); err != nil {
		r.logger.Warn("command delivery failed", "device", deviceID, "command", token, "error", err)
		return fmt.Errorf("delivering command: %w", err)
	}

	r.logger.Debug("command delivered", "device", deviceID, "command", token)
	return nil
}
