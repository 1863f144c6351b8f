package mqtt

import "fmt"

// Topic prefixes for the gateway's MQTT fan-out.
//
// Scheme: relaygate/{category}/{device_id}. External consumers (home
// automation hubs, recorders) subscribe to these; the gateway never
// subscribes itself, the TCP protocol is the only inbound device path.
const (
	// TopicPrefix is the base for all gateway topics.
	TopicPrefix = "relaygate"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "relaygate/system"
)

// Topics provides builders for gateway MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("esp32-A")
//	// Returns: "relaygate/state/esp32-A"
type Topics struct{}

// DeviceState returns the topic for a device's relay state reports.
//
// Example: relaygate/state/esp32-A
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceConfig returns the topic for a device's relay configuration.
//
// Example: relaygate/config/esp32-A
func (Topics) DeviceConfig(deviceID string) string {
	return fmt.Sprintf("%s/config/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the gateway status topic.
//
// Example: relaygate/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching every device's state topic.
//
// Pattern: relaygate/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllDeviceConfigs returns a pattern matching every device's config topic.
//
// Pattern: relaygate/config/+
func (Topics) AllDeviceConfigs() string {
	return fmt.Sprintf("%s/config/+", TopicPrefix)
}
