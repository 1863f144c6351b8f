package mqtt

import (
	"encoding/json"
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained messages are stored by the broker; new subscribers
// immediately receive the last retained message per topic. Use for
// state topics, not events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishState republishes a device's relay values to its state topic,
// retained so late subscribers see the last known state.
//
// The method satisfies the gateway's StatePublisher port; failures are
// logged and swallowed since the fan-out is best effort.
func (c *Client) PublishState(deviceID string, values map[string]int) {
	payload, err := json.Marshal(map[string]any{
		"device": deviceID,
		"relays": values,
	})
	if err != nil {
		return
	}

	topic := Topics{}.DeviceState(deviceID)
	if err := c.Publish(topic, payload, byte(c.cfg.QoS), true); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("state fan-out failed", "topic", topic, "error", err)
		}
	}
}

// PublishConfig republishes a device's relay configuration to its
// config topic, retained. Failures are logged and swallowed.
func (c *Client) PublishConfig(deviceID string, cfg any) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("config fan-out marshal failed", "device", deviceID, "error", err)
		}
		return
	}

	topic := Topics{}.DeviceConfig(deviceID)
	if err := c.Publish(topic, payload, byte(c.cfg.QoS), true); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("config fan-out failed", "topic", topic, "error", err)
		}
	}
}
