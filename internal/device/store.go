package device

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Logger defines the logging interface used by the device package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// storeKey identifies one device in the store.
type storeKey struct {
	t        Type
	location string
}

// Store holds the authoritative in-memory state for every catalog entry.
//
// Entries are seeded from the catalog at construction and mutated in place
// for the life of the process; they are never added or removed afterwards.
//
// All public methods are thread-safe. Apply serialises read-modify-write
// cycles so concurrent mutations of the same device never interleave, and
// the clamping/synchronisation invariants are enforced here once rather
// than in every caller.
type Store struct {
	catalog *Catalog
	mu      sync.RWMutex
	states  map[storeKey]State
	logger  Logger
}

// NewStore creates a store seeded with the catalog's initial states.
func NewStore(catalog *Catalog) *Store {
	states := make(map[storeKey]State, catalog.Len())
	for _, t := range Types() {
		for _, location := range catalog.Locations(t) {
			initial, err := catalog.InitialState(t, location)
			if err != nil {
				continue
			}
			states[storeKey{t, location}] = normalize(t, nil, initial)
		}
	}
	return &Store{
		catalog: catalog,
		states:  states,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Exists reports whether the (type, location) pair is known.
func (s *Store) Exists(t Type, location string) bool {
	return s.catalog.Exists(t, location)
}

// Get returns a copy of the current state for a device.
// Returns ErrDeviceNotFound if the pair is not in the catalog.
func (s *Store) Get(_ context.Context, t Type, location string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[storeKey{t, location}]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrDeviceNotFound, t, location)
	}
	return state.DeepCopy(), nil
}

// Snapshot returns a full copy of all device states, keyed by type then
// location. Used for the initial session sync and the full-state query.
func (s *Store) Snapshot(_ context.Context) map[Type]map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[Type]map[string]State)
	for key, state := range s.states {
		if snapshot[key.t] == nil {
			snapshot[key.t] = make(map[string]State)
		}
		snapshot[key.t][key.location] = state.DeepCopy()
	}
	return snapshot
}

// Apply runs a pure mutator against the current state of a device and
// stores the result, returning a copy of the new state.
//
// The mutator receives a copy and must return the next state; it runs
// under the store lock, so the read-modify-write cycle is atomic with
// respect to concurrent Apply/Get calls on the same device. Mutators must
// therefore be fast and must not perform I/O. Clamping and the
// status<->magnitude synchronisation rule are applied to the mutator's
// output before the write.
func (s *Store) Apply(_ context.Context, t Type, location string, mutator func(State) State) (State, error) {
	key := storeKey{t, location}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrDeviceNotFound, t, location)
	}

	next := mutator(current.DeepCopy())
	if next == nil {
		next = current.DeepCopy()
	}
	next = normalize(t, current, next)
	s.states[key] = next

	s.logger.Debug("device state updated", "device", t, "location", location)
	return next.DeepCopy(), nil
}

// normalize enforces the per-type state invariants on a mutated state:
// numeric attributes are clamped to their declared ranges, and for devices
// with a magnitude attribute a change of magnitude drags the status with it
// (zero forces off, a change to a positive value forces on). prev may be
// nil when normalising an initial state.
func normalize(t Type, prev, next State) State {
	switch t {
	case TypeLight:
		normalizeMagnitude(prev, next, AttrBrightness, BrightnessMin, BrightnessMax)
	case TypeFan:
		normalizeMagnitude(prev, next, AttrSpeed, SpeedMin, SpeedMax)
	case TypeAC:
		if temp, ok := next.Float(AttrTemperature); ok {
			temp = clampFloat(temp, TempMin, TempMax)
			// One decimal place; drift perturbs by fractional degrees.
			next[AttrTemperature] = math.Round(temp*10) / 10
		}
	case TypeCurtain:
		// Status-only device; nothing to clamp.
	}
	return next
}

// normalizeMagnitude clamps an integer magnitude attribute and keeps the
// status attribute synchronised with it.
func normalizeMagnitude(prev, next State, attr string, min, max int) {
	value, ok := next.Int(attr)
	if !ok {
		return
	}
	value = clampInt(value, min, max)
	next[attr] = value

	if value == min {
		next[AttrStatus] = StatusOff
		return
	}
	if prev != nil {
		if prevValue, ok := prev.Int(attr); ok && prevValue != value {
			next[AttrStatus] = StatusOn
		}
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
