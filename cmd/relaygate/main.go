// relaygate - relay controller gateway
//
// This is the main entry point for the relaygate application. It runs:
//   - A line-delimited TCP listener devices connect to (register,
//     report relay state, receive config pushes and commands)
//   - An HTTP API and web dashboard with live WebSocket fan-out
//   - Optional MQTT republish and InfluxDB telemetry sinks
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/sangit/relaygate/migrations"

	"github.com/sangit/relaygate/internal/api"
	"github.com/sangit/relaygate/internal/gateway"
	"github.com/sangit/relaygate/internal/infrastructure/config"
	"github.com/sangit/relaygate/internal/infrastructure/database"
	"github.com/sangit/relaygate/internal/infrastructure/influxdb"
	"github.com/sangit/relaygate/internal/infrastructure/logging"
	"github.com/sangit/relaygate/internal/infrastructure/mqtt"
	"github.com/sangit/relaygate/internal/relay"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting relaygate",
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

	// Open database for the relay event log
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	eventLog := relay.NewSQLiteEventLog(db.DB)

	// Relay configuration store, backed by a JSON file
	repo := relay.NewFileRepository(cfg.ConfigStore.Path)
	store := relay.NewStore(repo, cfg.Gateway.DefaultSlots)
	store.SetLogger(log)
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading relay config: %w", loadErr)
	}
	log.Info("relay config loaded", "path", cfg.ConfigStore.Path)

	// Device registry and TCP gateway
	registry := gateway.NewRegistry(cfg.Gateway.MaxDevices)
	gatewaySrv, err := gateway.New(gateway.Deps{
		Config:   cfg.Gateway,
		Logger:   log,
		Registry: registry,
		Store:    store,
		Events:   eventLog,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	commands := gateway.NewCommandRouter(registry, log)

	// HTTP API and dashboard
	apiSrv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Store:    store,
		Events:   eventLog,
		Commands: commands,
		Registry: registry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Wire the ports between the layers:
	//   - config mutations push to the device and fan out to dashboards
	//   - state reports fan out to dashboards
	store.SetPusher(gatewaySrv)
	gatewaySrv.SetBroadcaster(apiSrv)
	notifiers := multiNotifier{apiSrv}

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
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

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		gatewaySrv.SetPublisher(mqttClient)
		notifiers = append(notifiers, &mqttConfigNotifier{client: mqttClient})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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

		gatewaySrv.SetMetrics(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	store.SetNotifier(notifiers)

	// Start the TCP gateway
	if startErr := gatewaySrv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting gateway: %w", startErr)
	}
	defer func() {
		log.Info("stopping gateway")
		if closeErr := gatewaySrv.Close(); closeErr != nil {
			log.Error("error closing gateway", "error", closeErr)
		}
	}()
	log.Info("gateway listening", "address", gatewaySrv.Addr())

	// Start the HTTP API
	if startErr := apiSrv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiSrv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, gatewaySrv, apiSrv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. TCP gateway
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("relaygate stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RELAYGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RELAYGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the core servers came up.
func healthCheck(ctx context.Context, db *database.DB, gatewaySrv *gateway.Server, apiSrv *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := gatewaySrv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if err := apiSrv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// multiNotifier fans a configuration change out to every registered
// notifier. The store takes a single Notifier; the dashboard hub and
// the optional MQTT republish both want the snapshot.
type multiNotifier []relay.Notifier

// ConfigChanged implements relay.Notifier.
func (m multiNotifier) ConfigChanged(snapshot map[string]relay.Config) {
	for _, n := range m {
		n.ConfigChanged(snapshot)
	}
}

// mqttConfigNotifier republishes each device's configuration to its
// retained MQTT config topic whenever the store changes.
type mqttConfigNotifier struct {
	client *mqtt.Client
}

// ConfigChanged implements relay.Notifier.
func (n *mqttConfigNotifier) ConfigChanged(snapshot map[string]relay.Config) {
	for device, cfg := range snapshot {
		n.client.PublishConfig(device, cfg)
	}
}
