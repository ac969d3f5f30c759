package device

import (
	"fmt"
	"sort"
)

// Catalog is the static registry of legal (type, location) pairs and their
// initial states. The catalog is fixed at construction: the control API can
// never add a type or location at runtime, so unknown pairs are always
// rejected rather than created.
type Catalog struct {
	entries map[Type]map[string]State
}

// DefaultCatalog returns the built-in home layout used when no devices
// section is present in the configuration.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(map[Type]map[string]State{
		TypeLight: {
			"living room": nil,
			"bedroom":     nil,
			"kitchen":     nil,
			"study":       nil,
		},
		TypeFan: {
			"living room": nil,
			"bedroom":     nil,
		},
		TypeAC: {
			"living room": nil,
			"bedroom":     nil,
		},
		TypeCurtain: {
			"living room": nil,
			"bedroom":     nil,
		},
	})
	if err != nil {
		// The built-in layout is statically valid.
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog from per-type location definitions.
// A nil or partial state is completed from the type's default initial
// state, so callers only specify the attributes they want to override.
func NewCatalog(defs map[Type]map[string]State) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}

	entries := make(map[Type]map[string]State, len(defs))
	for t, locations := range defs {
		if _, err := ParseType(string(t)); err != nil {
			return nil, err
		}
		if len(locations) == 0 {
			return nil, fmt.Errorf("device: type %q has no locations", t)
		}
		entries[t] = make(map[string]State, len(locations))
		for location, overrides := range locations {
			if location == "" {
				return nil, fmt.Errorf("device: type %q has an empty location", t)
			}
			initial := defaultInitialState(t)
			for k, v := range overrides {
				initial[k] = v
			}
			entries[t][location] = initial
		}
	}

	return &Catalog{entries: entries}, nil
}

// ParseCatalog builds a catalog from the untyped structure produced by the
// YAML configuration loader (type name -> location -> attribute overrides).
func ParseCatalog(raw map[string]map[string]map[string]any) (*Catalog, error) {
	defs := make(map[Type]map[string]State, len(raw))
	for name, locations := range raw {
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		defs[t] = make(map[string]State, len(locations))
		for location, overrides := range locations {
			defs[t][location] = State(overrides)
		}
	}
	return NewCatalog(defs)
}

// defaultInitialState returns the boot state for a device type.
func defaultInitialState(t Type) State {
	switch t {
	case TypeLight:
		return State{AttrStatus: StatusOff, AttrBrightness: 50}
	case TypeFan:
		return State{AttrStatus: StatusOff, AttrSpeed: 1}
	case TypeAC:
		return State{AttrStatus: StatusOff, AttrTemperature: 26.0, AttrMode: "cool"}
	case TypeCurtain:
		return State{AttrStatus: StatusClosed}
	default:
		return State{}
	}
}

// Exists reports whether the (type, location) pair is in the catalog.
func (c *Catalog) Exists(t Type, location string) bool {
	locations, ok := c.entries[t]
	if !ok {
		return false
	}
	_, ok = locations[location]
	return ok
}

// InitialState returns a copy of the initial state for a catalog entry.
// Returns ErrDeviceNotFound if the pair is not in the catalog.
func (c *Catalog) InitialState(t Type, location string) (State, error) {
	locations, ok := c.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrDeviceNotFound, t, location)
	}
	state, ok := locations[location]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrDeviceNotFound, t, location)
	}
	return state.DeepCopy(), nil
}

// Locations returns the sorted locations registered for a type.
func (c *Catalog) Locations(t Type) []string {
	locations := make([]string, 0, len(c.entries[t]))
	for location := range c.entries[t] {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// Len returns the total number of catalog entries.
func (c *Catalog) Len() int {
	n := 0
	for _, locations := range c.entries {
		n += len(locations)
	}
	return n
}
