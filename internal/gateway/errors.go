package gateway

import "errors"

// Common errors returned by gateway operations.
var (
	// ErrCapacityExceeded is returned when registering a new device would
	// push the registry past its configured maximum.
	ErrCapacityExceeded = errors.New("gateway: device capacity exceeded")

	// ErrDeviceOffline is returned when an operation needs a live
	// connection for a device that has none.
	ErrDeviceOffline = errors.New("gateway: device not connected")

	// ErrRejectedCommand is returned for command tokens that do not match
	// the relay command grammar.
	ErrRejectedCommand = errors.New("gateway: rejected command token")
)
