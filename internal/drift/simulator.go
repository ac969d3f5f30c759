package drift

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/voxhome/iot-core/internal/device"
)

// Default simulator settings.
const (
	// DefaultInterval is the pause between perturbation sweeps.
	DefaultInterval = 60 * time.Second

	// DefaultMaxDelta is the largest temperature change per sweep, in degrees.
	DefaultMaxDelta = 0.5
)

// Simulator periodically perturbs the temperature of running air
// conditioners to mimic real hardware drift.
//
// Every mutation goes through the same Store.Apply and Broadcaster paths
// as an externally issued command, so drift can never bypass the clamping
// invariants or go unnoticed by connected observers. The loop is a single
// goroutine driven by a ticker: iterations never overlap, and a failure
// for one device is logged and never halts the sweep or the loop.
type Simulator struct {
	store       *device.Store
	broadcaster device.Broadcaster
	telemetry   device.TelemetryWriter
	history     device.StateHistoryRepository
	logger      device.Logger

	interval time.Duration
	maxDelta float64

	// randFloat returns a value in [0, 1). Replaceable for tests.
	randFloat func() float64
}

// Config holds the simulator's collaborators and tuning.
// Store is required; Broadcaster, Telemetry, History and Logger are
// optional. Zero Interval and MaxDelta select the defaults.
type Config struct {
	Store       *device.Store
	Broadcaster device.Broadcaster
	Telemetry   device.TelemetryWriter
	History     device.StateHistoryRepository
	Logger      device.Logger
	Interval    time.Duration
	MaxDelta    float64
}

// New creates a drift simulator. It does not start the loop; call Run.
func New(cfg Config) (*Simulator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("drift: simulator requires a store")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxDelta <= 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Simulator{
		store:       cfg.Store,
		broadcaster: cfg.Broadcaster,
		telemetry:   cfg.Telemetry,
		history:     cfg.History,
		logger:      logger,
		interval:    cfg.Interval,
		maxDelta:    cfg.MaxDelta,
		randFloat:   rand.Float64,
	}, nil
}

// Run executes the drift loop until the context is cancelled.
// Call in a dedicated goroutine.
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("drift simulator started",
		"interval", s.interval.String(),
		"max_delta", s.maxDelta,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("drift simulator stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep perturbs every air conditioner that is currently running.
func (s *Simulator) sweep(ctx context.Context) {
	snapshot := s.store.Snapshot(ctx)

	for location, state := range snapshot[device.TypeAC] {
		if state.Status() != device.StatusOn {
			continue
		}

		delta := (s.randFloat()*2 - 1) * s.maxDelta

		next, err := s.store.Apply(ctx, device.TypeAC, location, func(state device.State) device.State {
			// A unit that was switched off between snapshot and apply
			// no longer drifts.
			if state.Status() != device.StatusOn {
				return state
			}
			if temp, ok := state.Float(device.AttrTemperature); ok {
				state[device.AttrTemperature] = temp + delta
			}
			return state
		})
		if err != nil {
			s.logger.Warn("drift apply failed", "location", location, "error", err)
			continue
		}
		if next.Status() != device.StatusOn {
			continue
		}

		s.logger.Debug("temperature drift applied",
			"location", location,
			"temperature", next[device.AttrTemperature],
		)

		if s.broadcaster != nil {
			s.broadcaster.DeviceUpdate(device.TypeAC, location, next)
		}
		if s.telemetry != nil {
			device.WriteStateMetrics(s.telemetry, device.TypeAC, location, next)
		}
		if s.history != nil {
			if histErr := s.history.RecordStateChange(ctx, device.TypeAC, location, next, device.StateHistorySourceDrift); histErr != nil {
				s.logger.Warn("drift history write failed", "location", location, "error", histErr)
			}
		}
	}
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
