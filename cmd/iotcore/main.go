// voxhome-iot - Device State Registry and Broadcast Service
//
// This is the main entry point for the voxhome IoT core, the service
// behind the voice assistant's smart-home control:
//   - In-memory device registry (lights, fans, ACs, curtains)
//   - Command execution with per-attribute clamping
//   - Real-time WebSocket broadcast of every state change
//   - Optional MQTT side channel, SQLite history, InfluxDB telemetry
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxhome/iot-core/internal/api"
	"github.com/voxhome/iot-core/internal/device"
	"github.com/voxhome/iot-core/internal/drift"
	"github.com/voxhome/iot-core/internal/infrastructure/config"
	"github.com/voxhome/iot-core/internal/infrastructure/database"
	"github.com/voxhome/iot-core/internal/infrastructure/influxdb"
	"github.com/voxhome/iot-core/internal/infrastructure/logging"
	"github.com/voxhome/iot-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting voxhome-iot",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the device catalog and seed the state store
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return fmt.Errorf("building device catalog: %w", err)
	}
	store := device.NewStore(catalog)
	store.SetLogger(log)
	log.Info("device store initialised", "devices", catalog.Len())

	// Open the state history database (optional)
	var historyRepo device.StateHistoryRepository
	if cfg.Database.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database connected", "path", cfg.Database.Path)

		historyRepo = device.NewSQLiteStateHistoryRepository(db.DB)
	} else {
		log.Info("state history disabled")
	}

	// Connect to the MQTT broker (optional side channel)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT side channel disabled")
	}

	// Connect to InfluxDB (optional telemetry)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub doubles as the broadcaster for the executor and the
	// drift simulator, so it is created before both and injected into the
	// API server.
	hub := api.NewHub(cfg.WebSocket, store, log)

	execDeps := device.ExecutorDeps{
		Store:       store,
		Broadcaster: hub,
		Logger:      log,
	}
	if mqttClient != nil {
		execDeps.SideChannel = &mqttSideChannel{client: mqttClient, log: log}
	}
	if influxClient != nil {
		execDeps.Telemetry = influxClient
	}
	if historyRepo != nil {
		execDeps.History = historyRepo
	}

	executor, err := device.NewExecutor(execDeps)
	if err != nil {
		return fmt.Errorf("creating command executor: %w", err)
	}
	hub.SetExecutor(executor)

	// Start the drift simulator (optional)
	if cfg.Drift.Enabled {
		driftCfg := drift.Config{
			Store:       store,
			Broadcaster: hub,
			Logger:      log,
			Interval:    cfg.Drift.GetInterval(),
			MaxDelta:    cfg.Drift.MaxDelta,
		}
		if influxClient != nil {
			driftCfg.Telemetry = influxClient
		}
		if historyRepo != nil {
			driftCfg.History = historyRepo
		}

		simulator, driftErr := drift.New(driftCfg)
		if driftErr != nil {
			return fmt.Errorf("creating drift simulator: %w", driftErr)
		}
		go simulator.Run(ctx)
	} else {
		log.Info("drift simulator disabled")
	}

	// Start the API server
	apiDeps := api.Deps{
		Config:   cfg.Server,
		WS:       cfg.WebSocket,
		Logger:   log,
		Store:    store,
		Executor: executor,
		History:  historyRepo,
		Hub:      hub,
		Version:  version,
	}
	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	go hub.Run(ctx)
	log.Info("API server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database (if enabled)

	log.Info("voxhome-iot stopped")
	return nil
}

// buildCatalog constructs the device catalog from config overrides,
// falling back to the built-in home layout when none are given.
func buildCatalog(cfg *config.Config) (*device.Catalog, error) {
	if len(cfg.Devices) == 0 {
		return device.DefaultCatalog(), nil
	}
	return device.ParseCatalog(cfg.Devices)
}

// getConfigPath returns the configuration file path.
// Uses VOXHOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VOXHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttSideChannel adapts the infrastructure MQTT client to the executor's
// fire-and-forget side channel. Publish failures are logged, never
// surfaced to the command result: the registry state has already changed
// and downstream consumers catch up on reconnect.
type mqttSideChannel struct {
	client *mqtt.Client
	log    *logging.Logger
}

// PublishCommand implements device.SideChannel.
func (a *mqttSideChannel) PublishCommand(deviceType device.Type, location, action string, parameters map[string]any) {
	if err := a.client.PublishDeviceCommand(string(deviceType), location, action, parameters); err != nil {
		a.log.Warn("side channel publish failed",
			"device", deviceType,
			"location", location,
			"action", action,
			"error", err,
		)
	}
}
