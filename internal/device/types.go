package device

import "fmt"

// Type identifies a class of controllable device. Each type carries its own
// state shape and action vocabulary (see transitions.go).
type Type string

// Supported device types.
const (
	TypeLight   Type = "light"
	TypeFan     Type = "fan"
	TypeAC      Type = "ac"
	TypeCurtain Type = "curtain"
)

// Types returns all supported device types in a stable order.
func Types() []Type {
	return []Type{TypeLight, TypeFan, TypeAC, TypeCurtain}
}

// ParseType converts a string into a Type.
// Returns ErrInvalidDeviceType for unrecognised values.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLight, TypeFan, TypeAC, TypeCurtain:
		return Type(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceType, s)
	}
}

// State attribute keys.
const (
	AttrStatus      = "status"
	AttrBrightness  = "brightness"
	AttrSpeed       = "speed"
	AttrTemperature = "temperature"
	AttrMode        = "mode"
)

// Status values. Lights, fans and ACs use on/off; curtains use open/closed.
const (
	StatusOn     = "on"
	StatusOff    = "off"
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Attribute ranges.
const (
	BrightnessMin = 0
	BrightnessMax = 100
	SpeedMin      = 0
	SpeedMax      = 3
	TempMin       = 16.0
	TempMax       = 30.0

	brightnessStep = 20
	speedStep      = 1
	tempStep       = 1.0
)

// ACModes is the set of valid air conditioner modes.
var ACModes = map[string]struct{}{
	"cool": {},
	"heat": {},
	"fan":  {},
	"auto": {},
}

// State is a device's current attribute set, keyed by attribute name.
// Values are JSON-compatible: strings for status/mode, numbers for
// brightness/speed/temperature.
type State map[string]any

// DeepCopy returns an independent copy of the state.
// Values are JSON scalars, so a shallow value copy is sufficient.
func (s State) DeepCopy() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Status returns the state's status attribute, or "" if absent.
func (s State) Status() string {
	v, _ := s[AttrStatus].(string)
	return v
}

// Int returns the named attribute as an int. JSON decoding produces
// float64, so both numeric representations are accepted.
func (s State) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Float returns the named attribute as a float64.
func (s State) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Command is a single device control request. Commands are ephemeral;
// they are validated against the catalog and never stored.
type Command struct {
	Device     string         `json:"device"`
	Action     string         `json:"action"`
	Location   string         `json:"location"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result statuses.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Result is the outcome of executing one Command. Successful results carry
// the post-mutation state; failed results carry a message instead.
type Result struct {
	Status       string `json:"status"`
	Device       string `json:"device,omitempty"`
	Location     string `json:"location,omitempty"`
	Action       string `json:"action,omitempty"`
	CurrentState State  `json:"current_state,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Broadcaster receives a notification after every successful state mutation.
// Implementations must not block; delivery is best-effort.
type Broadcaster interface {
	DeviceUpdate(deviceType Type, location string, state State)
}

// SideChannel publishes executed commands to an external transport
// (MQTT in production). Fire-and-forget: implementations log their own
// failures and never propagate them to the command's caller.
type SideChannel interface {
	PublishCommand(deviceType Type, location, action string, parameters map[string]any)
}

// TelemetryWriter records numeric state attributes to a time-series store.
// Writes are non-blocking and best-effort.
type TelemetryWriter interface {
	WriteDeviceMetric(deviceType, location, field string, value float64)
}
