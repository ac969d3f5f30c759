package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// QoS levels: 0 at most once, 1 at least once, 2 exactly once.
// Retained messages are stored by the broker and delivered immediately to
// new subscribers; use them for status topics, not for commands.
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

// commandPayload is the wire shape of a side-channel command message.
type commandPayload struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  string         `json:"timestamp"`
}

// PublishDeviceCommand publishes an executed command to the device's
// side-channel topic (iot/{device}/{location}) with the configured QoS.
//
// This is the bridge point for real hardware: an ESP32 or similar
// controller subscribed to its own topic mirrors the simulated state.
// Delivery is not guaranteed and callers must treat failures as
// log-and-continue.
func (c *Client) PublishDeviceCommand(deviceType, location, action string, parameters map[string]any) error {
	if parameters == nil {
		parameters = map[string]any{}
	}

	payload, err := json.Marshal(commandPayload{
		Action:     action,
		Parameters: parameters,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrPublishFailed, err)
	}

	topic := Topics{}.DeviceCommand(deviceType, location)
	return c.Publish(topic, payload, byte(c.cfg.QoS), false)
}
