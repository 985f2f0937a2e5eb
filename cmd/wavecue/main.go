// Wavecue Core - Voice Room Playback Automation
//
// This is the main entry point for the Wavecue Core application.
// Wavecue automates audio playback in voice rooms:
//   - Routines fire on timers or membership events and run ordered actions
//   - Per-scope playback queues with one voice connection each
//   - A sound catalogue with per-scope and global entries
//
// The chat-platform gateway is injected at this edge; the build ships
// with the offline placeholder client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/wavecue/wavecue-core/migrations"

	"github.com/wavecue/wavecue-core/internal/api"
	"github.com/wavecue/wavecue-core/internal/gateway"
	"github.com/wavecue/wavecue-core/internal/infrastructure/config"
	"github.com/wavecue/wavecue-core/internal/infrastructure/database"
	"github.com/wavecue/wavecue-core/internal/infrastructure/influxdb"
	"github.com/wavecue/wavecue-core/internal/infrastructure/logging"
	"github.com/wavecue/wavecue-core/internal/infrastructure/mqtt"
	"github.com/wavecue/wavecue-core/internal/platform"
	"github.com/wavecue/wavecue-core/internal/playback"
	"github.com/wavecue/wavecue-core/internal/routine"
	"github.com/wavecue/wavecue-core/internal/sound"
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
	log.Info("starting Wavecue Core",
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
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
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
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

	// Platform gateway: the offline placeholder until a real client is
	// injected by the embedding deployment.
	client := platform.NewOffline()
	log.Warn("no platform gateway wired, running with offline client")

	// Sound catalogue
	catalogue := sound.NewCatalogue(sound.NewSQLiteRepository(db.DB), sound.Config{
		Dir:                cfg.Sounds.Dir,
		AllowedExtensions:  cfg.Sounds.AllowedExtensions,
		MaxDurationSeconds: cfg.Sounds.MaxDurationSeconds,
		MaxFileSizeMB:      cfg.Sounds.MaxFileSizeMB,
		MaxNameLength:      cfg.Sounds.MaxNameLength,
	})
	catalogue.SetLogger(log)

	if added, syncErr := catalogue.SyncAll(ctx); syncErr != nil {
		log.Warn("sound folder sync failed", "error", syncErr)
	} else if added > 0 {
		log.Info("sound folders synced", "added", added)
	}

	// Playback manager: one player per scope, created on demand
	players := playback.NewManager(client, playback.Config{
		IdleTimeout:    cfg.IdleTimeout(),
		ConnectTimeout: cfg.ConnectTimeout(),
		Volume:         cfg.Playback.Volume,
	})
	players.SetLogger(log)
	players.SetSoundMarker(catalogue)
	players.SetTelemetry(newPlaybackTelemetry(mqttClient, influxClient, log))
	defer func() {
		log.Info("disconnecting voice players")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		players.DisconnectAll(shutdownCtx)
	}()

	// Routine engine
	executor := routine.NewExecutor(client, catalogue, players)
	executor.SetLogger(log)
	executor.SetTelemetry(newEngineTelemetry(mqttClient, influxClient, log))

	evaluator := routine.NewEvaluator()
	manager := routine.NewManager(routine.NewSQLiteRepository(db.DB), executor, evaluator)
	manager.SetLogger(log)

	if loadErr := manager.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading routines: %w", loadErr)
	}
	log.Info("routines loaded", "scopes", len(manager.Scopes()))

	// Timer-routine scheduler
	scheduler := routine.NewScheduler(manager, client, executor, evaluator, cfg.SchedulerTick())
	scheduler.SetLogger(log)
	go scheduler.Run(ctx)
	log.Info("scheduler started", "tick", cfg.SchedulerTick())

	// Gateway event entry point: fans each voice-state update into
	// event-routine dispatch and the alone-in-channel check. The ops
	// API exposes it at POST /events/voice for the gateway sidecar;
	// an embedding deployment can call it directly.
	events := gateway.NewDispatcher(manager, players)
	events.SetLogger(log)

	// Ops HTTP API
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			Logger:    log,
			Routines:  manager,
			Playback:  players,
			Catalogue: catalogue,
			Events:    events,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Voice players
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("Wavecue Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WAVECUE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WAVECUE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// newPlaybackTelemetry builds the playback telemetry sink over the
// optional MQTT and InfluxDB clients.
func newPlaybackTelemetry(mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) playback.Telemetry {
	var publisher playback.EventPublisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	var metrics playback.MetricsWriter
	if influxClient != nil {
		metrics = influxClient
	}

	adapter := playback.NewTelemetryAdapter(publisher, metrics)
	adapter.SetLogger(log)
	return adapter
}

// engineTelemetry publishes routine firing events to MQTT and records
// them in InfluxDB. Either client may be nil.
type engineTelemetry struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	topics mqtt.Topics
	log    *logging.Logger
}

func newEngineTelemetry(mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) *engineTelemetry {
	return &engineTelemetry{mqtt: mqttClient, influx: influxClient, log: log}
}

// RoutineFired implements routine.Telemetry.
func (t *engineTelemetry) RoutineFired(scopeID, routineID string, triggerType string, actionCount int) {
	if t.influx != nil {
		t.influx.WriteRoutineFired(scopeID, routineID, triggerType, actionCount)
	}
	if t.mqtt == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"scope_id":     scopeID,
		"routine_id":   routineID,
		"trigger_type": triggerType,
		"action_count": actionCount,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.log.Error("routine event marshal failed", "error", err)
		return
	}
	if err := t.mqtt.PublishEvent(t.topics.RoutineEvent(scopeID), payload); err != nil {
		t.log.Warn("routine event publish failed", "scope_id", scopeID, "error", err)
	}
}
