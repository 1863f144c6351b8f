package relay

import (
	"fmt"
	"regexp"
	"strconv"
)

// Validation constants.
const (
	// MaxNameLength is the longest allowed slot display name.
	MaxNameLength = 20

	// MinSlot and MaxSlot bound the relay slot numbers a gateway accepts.
	MinSlot = 1
	MaxSlot = 51

	// MinGPIO and MaxGPIO bound the physical pin numbers.
	MinGPIO = 0
	MaxGPIO = 50
)

// slotKeyRegex matches the relay field pattern shared by the session
// protocol and the configuration validator.
var slotKeyRegex = regexp.MustCompile(`^relay([0-9]+)$`)

// validCategories is pre-computed for O(1) lookups.
var validCategories map[Category]struct{}

func init() {
	validCategories = make(map[Category]struct{}, len(AllCategories()))
	for _, c := range AllCategories() {
		validCategories[c] = struct{}{}
	}
}

// ParseSlotKey extracts the slot number from a "relay<N>" field name.
// It reports ok=false when the name does not match the pattern at all.
// Range checking is left to the caller: the session protocol accepts any
// N up to MaxSlot in state reports, while configuration keys must also
// satisfy IsValidSlotKey.
func ParseSlotKey(key string) (int, bool) {
	m := slotKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsValidSlotKey reports whether key is "relay" followed by an integer
// in [MinSlot, MaxSlot].
func IsValidSlotKey(key string) bool {
	n, ok := ParseSlotKey(key)
	return ok && n >= MinSlot && n <= MaxSlot
}

// ValidateDescriptor checks the operator-supplied slot metadata.
// It returns the first failure found, wrapped in the matching sentinel.
func ValidateDescriptor(name string, gpio int, category Category) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}
	if gpio < MinGPIO || gpio > MaxGPIO {
		return fmt.Errorf("%w: gpio %d outside [%d, %d]", ErrInvalidGPIO, gpio, MinGPIO, MaxGPIO)
	}
	if _, ok := validCategories[category]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

// GPIOConflict scans all slots of a device's configuration except
// excludeKey and returns the display name of the first slot already
// using gpio, or "" when the pin is free.
func GPIOConflict(cfg Config, excludeKey string, gpio int) string {
	for key, desc := range cfg {
		if key == excludeKey {
			continue
		}
		if desc.GPIO == gpio {
			return desc.Name
		}
	}
	return ""
}
