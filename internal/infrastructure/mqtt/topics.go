package mqtt

import "fmt"

// Topic prefixes for the VoxHome IoT side channel.
//
// Device command topics use the flat scheme iot/{device}/{location};
// locations may contain spaces ("living room"), which are legal in MQTT
// topic segments.
const (
	// TopicPrefix is the base for all side-channel topics.
	TopicPrefix = "iot"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "iot/system"
)

// Topics provides builders for side-channel topic names.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topic := mqtt.Topics{}.DeviceCommand("light", "living room")
//	// Returns: "iot/light/living room"
type Topics struct{}

// DeviceCommand returns the command topic for one device.
func (Topics) DeviceCommand(deviceType, location string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, deviceType, location)
}

// SystemStatus returns the core online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
