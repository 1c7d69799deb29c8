package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nerrad567/rotex-can-core/internal/api"
	"github.com/nerrad567/rotex-can-core/internal/bridge"
	"github.com/nerrad567/rotex-can-core/internal/canbus"
	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/engine"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/flags"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/database"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/logging"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/mqtt"
)

// engineStopTimeout bounds the wait for the loop after cancellation.
const engineStopTimeout = 5 * time.Second

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the polling daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts.configPath)
		},
	}
}

// run is the daemon, separated from the command for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to config.yaml
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // startup sequence: one block per subsystem
	log := logging.Default()
	log.Info("starting rotexcan",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// State database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
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
	log.Info("database ready", "path", cfg.Database.Path)

	// Entity catalog
	translator, err := catalog.NewTranslator(cfg.Entities.Language)
	if err != nil {
		return fmt.Errorf("selecting language: %w", err)
	}
	entities, err := catalog.Build(cfg.Entities, entity.DefaultFingerprint)
	if err != nil {
		return fmt.Errorf("building entity catalog: %w", err)
	}
	log.Info("entity catalog built", "entities", len(entities), "disabled", len(cfg.Entities.Disabled))

	// CAN bus
	bus, err := canbus.Open(cfg.CAN, log.Component("canbus"))
	if err != nil {
		return fmt.Errorf("opening CAN bus: %w", err)
	}
	defer func() {
		log.Info("closing CAN bus")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing CAN bus", "error", closeErr)
		}
	}()
	log.Info("CAN bus open", "driver", cfg.CAN.Driver, "interface", cfg.CAN.Interface, "serial_port", cfg.CAN.SerialPort)

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(promReg)

	// Publishers are appended after the engine exists; the engine holds a
	// pointer so later additions are seen once the loop starts.
	var pubs engine.Publishers

	// InfluxDB (optional)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		pubs = append(pubs, bridge.NewHistory(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	eng, err := engine.New(engine.Options{
		Config:     cfg.Engine,
		Bus:        bus,
		Entities:   entities,
		Flags:      flags.NewSQLiteStore(db.DB),
		Translator: translator,
		Publisher:  &pubs,
		Metrics:    metrics,
		Logger:     log.Component("engine"),
		RxBuffer:   cfg.CAN.RxBuffer,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix, cfg.Node.ID)
		mqttClient, err = mqtt.Connect(cfg.MQTT, topics)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		br, brErr := bridge.New(bridge.Options{
			Client: mqttClient,
			Topics: topics,
			Engine: eng,
			QoS:    byte(cfg.MQTT.QoS),
			Logger: log.Component("bridge"),
		})
		if brErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", brErr)
		}
		if startErr := br.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			br.Stop()
		}()
		pubs = append(pubs, br)

		health := bridge.NewHealthReporter(br, bridge.HealthConfig{
			Node:     cfg.Node.ID,
			Version:  version,
			Interval: time.Duration(cfg.MQTT.HealthInterval) * time.Second,
		})
		health.Start(ctx)
		defer health.Stop()

		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"base_topic", topics.Base(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	// REST API and WebSocket hub
	if cfg.API.Enabled {
		hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
		pubs = append(pubs, hub)

		deps := api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Metrics:     cfg.Metrics,
			Logger:      log.Component("api"),
			Engine:      eng,
			ExternalHub: hub,
			Version:     version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if cfg.Metrics.Enabled {
			deps.Gatherer = promReg
		}
		srv, srvErr := api.New(deps)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Engine loop
	engCtx, stopEngine := context.WithCancel(ctx)
	defer stopEngine()
	engErr := make(chan error, 1)
	go func() {
		engErr <- eng.Run(engCtx)
	}()
	log.Info("initialisation complete, polling started", "entities", len(entities))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case runErr = <-engErr:
		if runErr != nil {
			log.Error("engine stopped", "error", runErr)
		}
	}

	stopEngine()
	if runErr == nil {
		select {
		case err := <-engErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
			}
		case <-time.After(engineStopTimeout):
			log.Warn("engine did not stop in time")
		}
	}

	// Deferred Close() calls will run in reverse order:
	// API, health, bridge, MQTT, InfluxDB, CAN bus, database.
	log.Info("rotexcan stopped")
	return runErr
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
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
