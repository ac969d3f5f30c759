package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(DefaultCatalog())
}

func TestNewStore_SeedsCatalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.Get(ctx, TypeLight, "living room")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state.Status() != StatusOff {
		t.Errorf("initial status = %q, want %q", state.Status(), StatusOff)
	}
	if brightness, _ := state.Int(AttrBrightness); brightness != 50 {
		t.Errorf("initial brightness = %d, want 50", brightness)
	}

	state, err = store.Get(ctx, TypeAC, "bedroom")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if temp, _ := state.Float(AttrTemperature); temp != 26.0 {
		t.Errorf("initial temperature = %v, want 26.0", temp)
	}
	if mode, _ := state[AttrMode].(string); mode != "cool" {
		t.Errorf("initial mode = %q, want cool", mode)
	}
}

func TestStore_Get_UnknownDevice(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), TypeLight, "garage")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.Get(ctx, TypeLight, "bedroom")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	state[AttrBrightness] = 999

	again, err := store.Get(ctx, TypeLight, "bedroom")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if brightness, _ := again.Int(AttrBrightness); brightness == 999 {
		t.Error("mutating a returned state leaked into the store")
	}
}

func TestStore_Snapshot(t *testing.T) {
	store := newTestStore(t)

	snapshot := store.Snapshot(context.Background())

	if len(snapshot[TypeLight]) != 4 {
		t.Errorf("light locations = %d, want 4", len(snapshot[TypeLight]))
	}
	if len(snapshot[TypeFan]) != 2 {
		t.Errorf("fan locations = %d, want 2", len(snapshot[TypeFan]))
	}
	if len(snapshot[TypeAC]) != 2 {
		t.Errorf("ac locations = %d, want 2", len(snapshot[TypeAC]))
	}
	if len(snapshot[TypeCurtain]) != 2 {
		t.Errorf("curtain locations = %d, want 2", len(snapshot[TypeCurtain]))
	}

	// Snapshot must be detached from the store.
	snapshot[TypeLight]["bedroom"][AttrBrightness] = 999
	state, _ := store.Get(context.Background(), TypeLight, "bedroom")
	if brightness, _ := state.Int(AttrBrightness); brightness == 999 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestStore_Apply_ClampsAndRounds(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		t        Type
		location string
		action   string
		params   map[string]any
		check    func(t *testing.T, state State)
	}{
		{
			name:     "brighten clamps at 100",
			t:        TypeLight,
			location: "bedroom",
			action:   "brighten",
			check: func(t *testing.T, state State) {
				// seed brightness 90 below
				if brightness, _ := state.Int(AttrBrightness); brightness != 100 {
					t.Errorf("brightness = %d, want 100", brightness)
				}
				if state.Status() != StatusOn {
					t.Errorf("status = %q, want on", state.Status())
				}
			},
		},
		{
			name:     "temp_up clamps at 30",
			t:        TypeAC,
			location: "bedroom",
			action:   "temp_up",
			check: func(t *testing.T, state State) {
				if temp, _ := state.Float(AttrTemperature); temp != 30.0 {
					t.Errorf("temperature = %v, want 30.0", temp)
				}
			},
		},
		{
			name:     "set_temperature clamps below 16",
			t:        TypeAC,
			location: "living room",
			action:   "set_temperature",
			params:   map[string]any{AttrTemperature: 5.0},
			check: func(t *testing.T, state State) {
				if temp, _ := state.Float(AttrTemperature); temp != 16.0 {
					t.Errorf("temperature = %v, want 16.0", temp)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)

			// Push the devices to the edge of their ranges first.
			if tt.name == "brighten clamps at 100" {
				mustApply(t, store, TypeLight, "bedroom", "set_brightness", map[string]any{AttrBrightness: 90})
			}
			if tt.name == "temp_up clamps at 30" {
				mustApply(t, store, TypeAC, "bedroom", "set_temperature", map[string]any{AttrTemperature: 30.0})
			}

			transition, _ := Transition(tt.t)
			state, err := store.Apply(ctx, tt.t, tt.location, func(s State) State {
				next, terr := transition(s, tt.action, tt.params)
				if terr != nil {
					t.Errorf("transition error = %v", terr)
					return nil
				}
				return next
			})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			tt.check(t, state)
		})
	}
}

func TestStore_Apply_RoundsTemperature(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Apply(context.Background(), TypeAC, "bedroom", func(s State) State {
		s[AttrTemperature] = 25.4499
		return s
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if temp, _ := state.Float(AttrTemperature); temp != 25.4 {
		t.Errorf("temperature = %v, want 25.4", temp)
	}
}

func TestStore_Apply_NilMutatorResult(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Apply(context.Background(), TypeLight, "study", func(State) State {
		return nil
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if brightness, _ := state.Int(AttrBrightness); brightness != 50 {
		t.Errorf("nil mutator result should keep current state, brightness = %d", brightness)
	}
}

func TestStore_Apply_UnknownDevice(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Apply(context.Background(), TypeFan, "kitchen", func(s State) State { return s })
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Apply() error = %v, want ErrDeviceNotFound", err)
	}
}

// TestStore_Apply_Concurrent hammers one device from many goroutines and
// verifies no update is lost: each goroutine adds exactly 1 to the
// brightness, all within the clamp range.
func TestStore_Apply_Concurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustApply(t, store, TypeLight, "kitchen", "set_brightness", map[string]any{AttrBrightness: 1})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, TypeLight, "kitchen", func(s State) State {
				brightness, _ := s.Int(AttrBrightness)
				s[AttrBrightness] = brightness + 1
				return s
			})
			if err != nil {
				t.Errorf("Apply() error = %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := store.Get(ctx, TypeLight, "kitchen")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if brightness, _ := state.Int(AttrBrightness); brightness != 1+workers {
		t.Errorf("brightness = %d, want %d (lost updates)", brightness, 1+workers)
	}
}

// mustApply runs a transition through the store and fails the test on error.
func mustApply(t *testing.T, store *Store, typ Type, location, action string, params map[string]any) State {
	t.Helper()
	transition, ok := Transition(typ)
	if !ok {
		t.Fatalf("no transition for type %q", typ)
	}
	state, err := store.Apply(context.Background(), typ, location, func(s State) State {
		next, terr := transition(s, action, params)
		if terr != nil {
			t.Errorf("transition error = %v", terr)
			return nil
		}
		return next
	})
	if err != nil {
		t.Fatalf("Apply(%s %s %s) error = %v", typ, location, action, err)
	}
	return state
}
