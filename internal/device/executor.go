package device

import (
	"context"
	"fmt"
)

// Executor validates and applies device commands.
//
// Every mutation goes through the Store's Apply path, so the executor
// never needs to re-implement the clamping invariants. On success it
// notifies the broadcaster, the optional side channel, the optional
// telemetry writer and the optional history recorder; none of those can
// fail a command that has already mutated state.
//
// Execute never panics past its own boundary: an unexpected failure in a
// single command is converted into an error result so batch processing
// continues with the remaining commands.
type Executor struct {
	store       *Store
	broadcaster Broadcaster
	side        SideChannel
	telemetry   TelemetryWriter
	history     StateHistoryRepository
	logger      Logger
}

// ExecutorDeps holds the collaborators for an Executor. Store is required;
// everything else is optional and skipped when nil.
type ExecutorDeps struct {
	Store       *Store
	Broadcaster Broadcaster
	SideChannel SideChannel
	Telemetry   TelemetryWriter
	History     StateHistoryRepository
	Logger      Logger
}

// NewExecutor creates a command executor.
func NewExecutor(deps ExecutorDeps) (*Executor, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("device: executor requires a store")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Executor{
		store:       deps.Store,
		broadcaster: deps.Broadcaster,
		side:        deps.SideChannel,
		telemetry:   deps.Telemetry,
		history:     deps.History,
		logger:      logger,
	}, nil
}

// ExecuteBatch executes commands in order and returns one result per
// command in the same order. Individual failures are reported per item and
// never abort the batch.
func (e *Executor) ExecuteBatch(ctx context.Context, commands []Command) []Result {
	results := make([]Result, 0, len(commands))
	for _, cmd := range commands {
		results = append(results, e.Execute(ctx, cmd))
	}
	return results
}

// Execute validates and applies a single command.
//
// Validation order: catalog existence first, then required fields. An
// unknown (device, location) pair yields a "device not found" error result
// and mutates nothing; a known pair with an empty action yields "missing
// parameters". Unrecognised actions on a known device succeed as no-ops
// with the unchanged state, but a parameter that is present with a
// malformed value yields an error result and mutates nothing (see
// TransitionFunc).
func (e *Executor) Execute(ctx context.Context, cmd Command) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command execution panic recovered",
				"device", cmd.Device,
				"location", cmd.Location,
				"action", cmd.Action,
				"panic", r,
			)
			result = errorResult(cmd, fmt.Sprintf("error executing command: %v", r))
		}
	}()

	t, err := ParseType(cmd.Device)
	if err != nil || !e.store.Exists(t, cmd.Location) {
		return errorResult(cmd, "device not found")
	}
	if cmd.Device == "" || cmd.Action == "" || cmd.Location == "" {
		return errorResult(cmd, "missing parameters")
	}

	transition, ok := Transition(t)
	if !ok {
		return errorResult(cmd, "device not found")
	}

	var paramErr error
	next, err := e.store.Apply(ctx, t, cmd.Location, func(state State) State {
		out, terr := transition(state, cmd.Action, cmd.Parameters)
		if terr != nil {
			paramErr = terr
			return nil
		}
		return out
	})
	if err != nil {
		return errorResult(cmd, err.Error())
	}
	if paramErr != nil {
		return errorResult(cmd, paramErr.Error())
	}

	e.notify(ctx, t, cmd, next)

	return Result{
		Status:       ResultSuccess,
		Device:       cmd.Device,
		Location:     cmd.Location,
		Action:       cmd.Action,
		CurrentState: next,
	}
}

// notify fans a successful mutation out to the observers. All deliveries
// are best-effort: a failure is logged and never reaches the caller.
func (e *Executor) notify(ctx context.Context, t Type, cmd Command, state State) {
	if e.broadcaster != nil {
		e.broadcaster.DeviceUpdate(t, cmd.Location, state)
	}

	if e.side != nil {
		e.side.PublishCommand(t, cmd.Location, cmd.Action, cmd.Parameters)
	}

	if e.telemetry != nil {
		WriteStateMetrics(e.telemetry, t, cmd.Location, state)
	}

	if e.history != nil {
		if err := e.history.RecordStateChange(ctx, t, cmd.Location, state, StateHistorySourceCommand); err != nil {
			e.logger.Warn("state history write failed",
				"device", t,
				"location", cmd.Location,
				"error", err,
			)
		}
	}
}

// WriteStateMetrics records the numeric attributes of a state snapshot.
// Shared with the drift simulator so both mutation paths feed telemetry
// the same way.
func WriteStateMetrics(w TelemetryWriter, t Type, location string, state State) {
	for _, attr := range []string{AttrBrightness, AttrSpeed, AttrTemperature} {
		if value, ok := state.Float(attr); ok {
			w.WriteDeviceMetric(string(t), location, attr, value)
		}
	}
}

func errorResult(cmd Command, message string) Result {
	return Result{
		Status:   ResultError,
		Device:   cmd.Device,
		Location: cmd.Location,
		Action:   cmd.Action,
		Message:  message,
	}
}
