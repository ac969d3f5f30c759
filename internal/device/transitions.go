package device

import "fmt"

// TransitionFunc computes the next state for one device given an action and
// its optional parameters. The input state is a private copy; transitions
// mutate and return it. Clamping is left to the store's normalisation pass.
//
// Unrecognised actions (and recognised actions missing their required
// parameter) leave the state unchanged. This is deliberate: a batch of
// commands from the language model frequently contains actions a device
// does not support, and a no-op keeps the rest of the batch flowing
// instead of failing it. A parameter that is present but of the wrong
// type is a different matter: that command is malformed, and the
// transition rejects it with ErrInvalidParameter.
type TransitionFunc func(state State, action string, params map[string]any) (State, error)

// transitions maps each device type to its transition function. Adding a
// device type means adding a Type constant, an entry here, and an initial
// state in the catalog; the compiler and tests keep the three in step.
var transitions = map[Type]TransitionFunc{
	TypeLight:   lightTransition,
	TypeFan:     fanTransition,
	TypeAC:      acTransition,
	TypeCurtain: curtainTransition,
}

// Transition returns the transition function for a device type.
func Transition(t Type) (TransitionFunc, bool) {
	fn, ok := transitions[t]
	return fn, ok
}

func lightTransition(state State, action string, params map[string]any) (State, error) {
	brightness, _ := state.Int(AttrBrightness)

	switch action {
	case "on":
		state[AttrStatus] = StatusOn
	case "off":
		state[AttrStatus] = StatusOff
	case "brighten":
		state[AttrBrightness] = brightness + brightnessStep
		state[AttrStatus] = StatusOn
	case "dim":
		state[AttrBrightness] = brightness - brightnessStep
		state[AttrStatus] = statusByMagnitude(brightness - brightnessStep)
	case "set_brightness":
		value, ok, err := numberParam(params, AttrBrightness)
		if err != nil {
			return state, err
		}
		if ok {
			target := clampInt(int(value), BrightnessMin, BrightnessMax)
			state[AttrBrightness] = target
			state[AttrStatus] = statusByMagnitude(target)
		}
	}
	return state, nil
}

func fanTransition(state State, action string, params map[string]any) (State, error) {
	speed, _ := state.Int(AttrSpeed)

	switch action {
	case "on":
		state[AttrStatus] = StatusOn
	case "off":
		state[AttrStatus] = StatusOff
	case "speed_up":
		state[AttrSpeed] = speed + speedStep
		state[AttrStatus] = StatusOn
	case "speed_down":
		state[AttrSpeed] = speed - speedStep
		state[AttrStatus] = statusByMagnitude(speed - speedStep)
	case "set_speed":
		value, ok, err := numberParam(params, AttrSpeed)
		if err != nil {
			return state, err
		}
		if ok {
			target := clampInt(int(value), SpeedMin, SpeedMax)
			state[AttrSpeed] = target
			state[AttrStatus] = statusByMagnitude(target)
		}
	}
	return state, nil
}

func acTransition(state State, action string, params map[string]any) (State, error) {
	temperature, _ := state.Float(AttrTemperature)

	switch action {
	case "on":
		state[AttrStatus] = StatusOn
	case "off":
		state[AttrStatus] = StatusOff
	case "temp_up":
		state[AttrTemperature] = temperature + tempStep
		state[AttrStatus] = StatusOn
	case "temp_down":
		state[AttrTemperature] = temperature - tempStep
		state[AttrStatus] = StatusOn
	case "set_temperature":
		value, ok, err := numberParam(params, AttrTemperature)
		if err != nil {
			return state, err
		}
		if ok {
			state[AttrTemperature] = value
			state[AttrStatus] = StatusOn
		}
	case "set_mode":
		raw, present := params[AttrMode]
		if present {
			mode, ok := raw.(string)
			if !ok {
				return state, fmt.Errorf("%w: %s", ErrInvalidParameter, AttrMode)
			}
			if _, valid := ACModes[mode]; valid {
				state[AttrMode] = mode
				state[AttrStatus] = StatusOn
			}
		}
	}
	return state, nil
}

func curtainTransition(state State, action string, _ map[string]any) (State, error) {
	switch action {
	case "on", "open":
		state[AttrStatus] = StatusOpen
	case "off", "close":
		state[AttrStatus] = StatusClosed
	}
	return state, nil
}

// statusByMagnitude maps a magnitude value to the matching status: zero or
// below is off, anything positive is on.
func statusByMagnitude(value int) string {
	if value <= 0 {
		return StatusOff
	}
	return StatusOn
}

// numberParam reports how a numeric parameter was supplied: absent (ok
// false, nil error), present with a usable value in the int and float64
// representations produced by JSON and YAML decoding, or present with a
// non-numeric value (ErrInvalidParameter).
func numberParam(params map[string]any, key string) (float64, bool, error) {
	raw, present := params[key]
	if !present {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s", ErrInvalidParameter, key)
	}
}
