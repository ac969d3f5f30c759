package device

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	if got := catalog.Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}

	known := []struct {
		t        Type
		location string
	}{
		{TypeLight, "living room"},
		{TypeLight, "bedroom"},
		{TypeLight, "kitchen"},
		{TypeLight, "study"},
		{TypeFan, "living room"},
		{TypeFan, "bedroom"},
		{TypeAC, "living room"},
		{TypeAC, "bedroom"},
		{TypeCurtain, "living room"},
		{TypeCurtain, "bedroom"},
	}
	for _, pair := range known {
		if !catalog.Exists(pair.t, pair.location) {
			t.Errorf("Exists(%s, %s) = false, want true", pair.t, pair.location)
		}
	}

	if catalog.Exists(TypeFan, "kitchen") {
		t.Error("Exists(fan, kitchen) = true, want false")
	}
}

func TestNewCatalog_Overrides(t *testing.T) {
	catalog, err := NewCatalog(map[Type]map[string]State{
		TypeLight: {
			"garage": {AttrBrightness: 80},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	state, err := catalog.InitialState(TypeLight, "garage")
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	if brightness, _ := state.Int(AttrBrightness); brightness != 80 {
		t.Errorf("override brightness = %d, want 80", brightness)
	}
	// Unoverridden attributes come from the type default.
	if state.Status() != StatusOff {
		t.Errorf("status = %q, want %q", state.Status(), StatusOff)
	}
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		defs map[Type]map[string]State
	}{
		{"empty", nil},
		{"unknown type", map[Type]map[string]State{"toaster": {"kitchen": nil}}},
		{"type without locations", map[Type]map[string]State{TypeLight: {}}},
		{"empty location", map[Type]map[string]State{TypeLight: {"": nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.defs); err == nil {
				t.Error("NewCatalog() succeeded, want error")
			}
		})
	}
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog(map[string]map[string]map[string]any{
		"ac": {
			"office": {"temperature": 22.0, "mode": "heat"},
		},
	})
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}

	state, err := catalog.InitialState(TypeAC, "office")
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	if temp, _ := state.Float(AttrTemperature); temp != 22.0 {
		t.Errorf("temperature = %v, want 22.0", temp)
	}
	if mode, _ := state[AttrMode].(string); mode != "heat" {
		t.Errorf("mode = %q, want heat", mode)
	}
}

func TestParseCatalog_UnknownType(t *testing.T) {
	_, err := ParseCatalog(map[string]map[string]map[string]any{
		"vacuum": {"hall": nil},
	})
	if !errors.Is(err, ErrInvalidDeviceType) {
		t.Errorf("ParseCatalog() error = %v, want ErrInvalidDeviceType", err)
	}
}

func TestCatalog_InitialState_ReturnsCopy(t *testing.T) {
	catalog := DefaultCatalog()

	first, err := catalog.InitialState(TypeLight, "study")
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	first[AttrBrightness] = 999

	second, err := catalog.InitialState(TypeLight, "study")
	if err != nil {
		t.Fatalf("InitialState() error = %v", err)
	}
	if brightness, _ := second.Int(AttrBrightness); brightness == 999 {
		t.Error("mutating a returned initial state leaked into the catalog")
	}
}

func TestCatalog_Locations_Sorted(t *testing.T) {
	catalog := DefaultCatalog()

	locations := catalog.Locations(TypeLight)
	want := []string{"bedroom", "kitchen", "living room", "study"}
	if len(locations) != len(want) {
		t.Fatalf("Locations() = %v, want %v", locations, want)
	}
	for i := range want {
		if locations[i] != want[i] {
			t.Errorf("Locations()[%d] = %q, want %q", i, locations[i], want[i])
		}
	}
}
