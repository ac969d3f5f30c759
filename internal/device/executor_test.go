package device

import (
	"context"
	"sync"
	"testing"
)

// mockBroadcaster records DeviceUpdate calls.
type mockBroadcaster struct {
	mu      sync.Mutex
	updates []State
}

func (m *mockBroadcaster) DeviceUpdate(_ Type, _ string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, state)
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// mockSideChannel records published commands.
type mockSideChannel struct {
	mu       sync.Mutex
	commands []string
}

func (m *mockSideChannel) PublishCommand(deviceType Type, location, action string, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, string(deviceType)+"/"+location+"/"+action)
}

// mockTelemetry records metric writes.
type mockTelemetry struct {
	mu     sync.Mutex
	fields []string
	values []float64
}

func (m *mockTelemetry) WriteDeviceMetric(_, _, field string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = append(m.fields, field)
	m.values = append(m.values, value)
}

// mockHistory records state changes and can simulate failure.
type mockHistory struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (m *mockHistory) RecordStateChange(_ context.Context, _ Type, _ string, _ State, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sources = append(m.sources, source)
	return nil
}

func (m *mockHistory) GetHistory(_ context.Context, _ Type, _ string, _ int) ([]StateHistoryEntry, error) {
	return nil, nil
}

func newTestExecutor(t *testing.T, deps ExecutorDeps) *Executor {
	t.Helper()
	if deps.Store == nil {
		deps.Store = NewStore(DefaultCatalog())
	}
	executor, err := NewExecutor(deps)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return executor
}

func TestNewExecutor_RequiresStore(t *testing.T) {
	if _, err := NewExecutor(ExecutorDeps{}); err == nil {
		t.Error("NewExecutor() without store succeeded, want error")
	}
}

func TestExecute_Success(t *testing.T) {
	executor := newTestExecutor(t, ExecutorDeps{})

	result := executor.Execute(context.Background(), Command{
		Device:   "light",
		Action:   "on",
		Location: "bedroom",
	})

	if result.Status != ResultSuccess {
		t.Fatalf("status = %q, want %q (message %q)", result.Status, ResultSuccess, result.Message)
	}
	if result.CurrentState.Status() != StatusOn {
		t.Errorf("current_state.status = %q, want on", result.CurrentState.Status())
	}
	if result.Device != "light" || result.Location != "bedroom" || result.Action != "on" {
		t.Errorf("result echo = %s/%s/%s, want light/bedroom/on", result.Device, result.Location, result.Action)
	}
}

func TestExecute_Validation(t *testing.T) {
	executor := newTestExecutor(t, ExecutorDeps{})
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     Command
		message string
	}{
		{
			name:    "unknown device type",
			cmd:     Command{Device: "toaster", Action: "on", Location: "kitchen"},
			message: "device not found",
		},
		{
			name:    "unknown location",
			cmd:     Command{Device: "fan", Action: "on", Location: "kitchen"},
			message: "device not found",
		},
		{
			// Existence is checked before required fields: an unknown
			// device with an empty action still reports not-found.
			name:    "unknown device with empty action",
			cmd:     Command{Device: "toaster", Location: "kitchen"},
			message: "device not found",
		},
		{
			name:    "empty action on known device",
			cmd:     Command{Device: "light", Location: "bedroom"},
			message: "missing parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := executor.Execute(ctx, tt.cmd)
			if result.Status != ResultError {
				t.Fatalf("status = %q, want error", result.Status)
			}
			if result.Message != tt.message {
				t.Errorf("message = %q, want %q", result.Message, tt.message)
			}
		})
	}
}

func TestExecute_UnknownActionIsNoOp(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	executor := newTestExecutor(t, ExecutorDeps{Broadcaster: broadcaster})

	result := executor.Execute(context.Background(), Command{
		Device:   "light",
		Action:   "sparkle",
		Location: "bedroom",
	})

	if result.Status != ResultSuccess {
		t.Fatalf("status = %q, want success (message %q)", result.Status, result.Message)
	}
	if result.CurrentState.Status() != StatusOff {
		t.Errorf("state changed by unknown action: status = %q", result.CurrentState.Status())
	}
	// State did not change in value, but the mutation path ran, so
	// observers still hear about it.
	if broadcaster.count() != 1 {
		t.Errorf("broadcasts = %d, want 1", broadcaster.count())
	}
}

func TestExecute_MalformedParameterIsError(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	side := &mockSideChannel{}
	executor := newTestExecutor(t, ExecutorDeps{
		Broadcaster: broadcaster,
		SideChannel: side,
	})
	ctx := context.Background()

	result := executor.Execute(ctx, Command{
		Device:     "light",
		Action:     "set_brightness",
		Location:   "kitchen",
		Parameters: map[string]any{AttrBrightness: "very bright"},
	})

	if result.Status != ResultError {
		t.Fatalf("status = %q, want error (got state %v)", result.Status, result.CurrentState)
	}
	if result.Message == "" {
		t.Error("malformed parameter produced empty message")
	}

	// The device is untouched and no observer heard anything.
	state, err := executor.store.Get(ctx, TypeLight, "kitchen")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if brightness, _ := state.Int(AttrBrightness); brightness != 50 {
		t.Errorf("brightness = %d, want unchanged 50", brightness)
	}
	if broadcaster.count() != 0 {
		t.Errorf("broadcasts = %d, want 0 for rejected command", broadcaster.count())
	}
	if len(side.commands) != 0 {
		t.Errorf("side channel commands = %v, want none for rejected command", side.commands)
	}
}

func TestExecute_NotifiesObservers(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	side := &mockSideChannel{}
	telemetry := &mockTelemetry{}
	history := &mockHistory{}

	executor := newTestExecutor(t, ExecutorDeps{
		Broadcaster: broadcaster,
		SideChannel: side,
		Telemetry:   telemetry,
		History:     history,
	})

	result := executor.Execute(context.Background(), Command{
		Device:     "light",
		Action:     "set_brightness",
		Location:   "study",
		Parameters: map[string]any{AttrBrightness: 75},
	})
	if result.Status != ResultSuccess {
		t.Fatalf("status = %q, want success (message %q)", result.Status, result.Message)
	}

	if broadcaster.count() != 1 {
		t.Errorf("broadcasts = %d, want 1", broadcaster.count())
	}
	if len(side.commands) != 1 || side.commands[0] != "light/study/set_brightness" {
		t.Errorf("side channel commands = %v", side.commands)
	}
	if len(telemetry.fields) != 1 || telemetry.fields[0] != AttrBrightness || telemetry.values[0] != 75 {
		t.Errorf("telemetry writes = %v %v", telemetry.fields, telemetry.values)
	}
	if len(history.sources) != 1 || history.sources[0] != StateHistorySourceCommand {
		t.Errorf("history sources = %v", history.sources)
	}
}

func TestExecute_ErrorResultNotifiesNothing(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	side := &mockSideChannel{}

	executor := newTestExecutor(t, ExecutorDeps{
		Broadcaster: broadcaster,
		SideChannel: side,
	})

	executor.Execute(context.Background(), Command{Device: "fan", Action: "on", Location: "kitchen"})

	if broadcaster.count() != 0 {
		t.Errorf("broadcasts = %d, want 0 for failed command", broadcaster.count())
	}
	if len(side.commands) != 0 {
		t.Errorf("side channel commands = %v, want none for failed command", side.commands)
	}
}

func TestExecute_HistoryFailureDoesNotFailCommand(t *testing.T) {
	history := &mockHistory{err: context.DeadlineExceeded}
	executor := newTestExecutor(t, ExecutorDeps{History: history})

	result := executor.Execute(context.Background(), Command{
		Device:   "curtain",
		Action:   "open",
		Location: "bedroom",
	})
	if result.Status != ResultSuccess {
		t.Errorf("status = %q, want success despite history failure", result.Status)
	}
}

// panickyBroadcaster simulates an observer bug.
type panickyBroadcaster struct{}

func (panickyBroadcaster) DeviceUpdate(Type, string, State) {
	panic("observer bug")
}

func TestExecute_RecoversPanics(t *testing.T) {
	executor := newTestExecutor(t, ExecutorDeps{Broadcaster: panickyBroadcaster{}})

	result := executor.Execute(context.Background(), Command{
		Device:   "light",
		Action:   "on",
		Location: "bedroom",
	})

	if result.Status != ResultError {
		t.Fatalf("status = %q, want error from recovered panic", result.Status)
	}
	if result.Message == "" {
		t.Error("recovered panic produced empty message")
	}
}

func TestExecuteBatch_PreservesOrderAndContinuesPastFailures(t *testing.T) {
	executor := newTestExecutor(t, ExecutorDeps{})

	commands := []Command{
		{Device: "light", Action: "on", Location: "bedroom"},
		{Device: "fan", Action: "on", Location: "kitchen"}, // not in catalog
		{Device: "ac", Action: "temp_down", Location: "living room"},
	}

	results := executor.ExecuteBatch(context.Background(), commands)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Status != ResultSuccess {
		t.Errorf("results[0].status = %q, want success", results[0].Status)
	}
	if results[1].Status != ResultError || results[1].Message != "device not found" {
		t.Errorf("results[1] = %+v, want device not found error", results[1])
	}
	if results[2].Status != ResultSuccess {
		t.Errorf("results[2].status = %q, want success (batch must continue)", results[2].Status)
	}
	if temp, _ := results[2].CurrentState.Float(AttrTemperature); temp != 25.0 {
		t.Errorf("results[2] temperature = %v, want 25.0", temp)
	}
}

func TestWriteStateMetrics(t *testing.T) {
	telemetry := &mockTelemetry{}

	WriteStateMetrics(telemetry, TypeAC, "bedroom", State{
		AttrStatus:      StatusOn,
		AttrTemperature: 24.5,
		AttrMode:        "cool",
	})

	if len(telemetry.fields) != 1 || telemetry.fields[0] != AttrTemperature {
		t.Fatalf("fields = %v, want [temperature]", telemetry.fields)
	}
	if telemetry.values[0] != 24.5 {
		t.Errorf("value = %v, want 24.5", telemetry.values[0])
	}
}
