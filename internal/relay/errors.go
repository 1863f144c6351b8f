package relay

import "errors"

// Domain errors for the relay package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, relay.ErrGPIOConflict) {
//	    // handle conflict case
//	}
var (
	// ErrInvalidSlotKey is returned when a slot key does not match
	// "relay<N>" with N in [1, 51].
	ErrInvalidSlotKey = errors.New("relay: invalid slot key")

	// ErrInvalidName is returned when a slot name is empty or too long.
	ErrInvalidName = errors.New("relay: invalid name")

	// ErrInvalidGPIO is returned when a GPIO pin is outside [0, 50].
	ErrInvalidGPIO = errors.New("relay: invalid gpio")

	// ErrInvalidCategory is returned when a category is not in the closed set.
	ErrInvalidCategory = errors.New("relay: invalid category")

	// ErrGPIOConflict is returned when another slot of the same device
	// already uses the requested GPIO pin.
	ErrGPIOConflict = errors.New("relay: gpio conflict")
)
