package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekobres/spook/internal/adapters/homeassistant"
	"github.com/ekobres/spook/internal/api"
	"github.com/ekobres/spook/internal/api/handlers"
	"github.com/ekobres/spook/internal/config"
	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/internal/core/mirror"
	"github.com/ekobres/spook/internal/core/registry"
	"github.com/ekobres/spook/internal/database"
	"github.com/ekobres/spook/internal/transport/mqtt"
	"github.com/ekobres/spook/internal/websocket"
	"github.com/ekobres/spook/pkg/logger"
	"github.com/ekobres/spook/pkg/version"
	"github.com/sirupsen/logrus"
)

const (
	snapshotsToKeep = 3
	callsToKeep     = 1000
	shutdownTimeout = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.FlushPending()

	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
		"commit":  version.GitCommit,
	}).Info("Starting spook")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("Server exited with error")
		log.FlushPending()
		os.Exit(1)
	}

	log.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log *logger.BatchLogger) error {
	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{
		Enabled: cfg.Metrics.Enabled,
		Prefix:  cfg.Metrics.Prefix,
	})
	health := metrics.NewHealthChecker(5 * time.Second)

	// Optional persistence: snapshot cache for warm starts and call history
	var (
		cache   mirror.SnapshotCache
		history actions.History
		calls   handlers.CallHistory
	)
	if cfg.Database.Enabled {
		db, err := database.Initialize(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		repos := database.NewRepositories(db)
		snapshot, err := database.NewSnapshotCache(repos.Snapshot, snapshotsToKeep, collector, log.Logger)
		if err != nil {
			return err
		}
		defer snapshot.Close()

		callLog := database.NewCallLog(repos.ActionCall, callsToKeep, log.Logger)
		cache, history, calls = snapshot, callLog, callLog

		health.Register("database", func(ctx context.Context) metrics.HealthStatus {
			if err := db.PingContext(ctx); err != nil {
				return metrics.NewHealthStatus(metrics.StatusUnhealthy, err.Error())
			}
			return metrics.NewHealthStatus(metrics.StatusHealthy, "database reachable")
		})
	}

	haClient, err := homeassistant.NewClient(cfg.HomeAssistant, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create Home Assistant client: %w", err)
	}

	store := registry.NewStore(log.Logger)
	mirrorSvc, err := mirror.New(haClient, store, cache, collector, mirror.Options{
		TrackStates:    cfg.HomeAssistant.TrackStates,
		Debounce:       config.Duration(cfg.HomeAssistant.RefreshDebounce, 500*time.Millisecond),
		ReconnectDelay: config.Duration(cfg.HomeAssistant.ReconnectDelay, 5*time.Second),
		ResyncSchedule: cfg.HomeAssistant.ResyncSchedule,
	}, log.Logger)
	if err != nil {
		return err
	}

	limits := entityfilter.Limits{Default: cfg.Filter.DefaultLimit, Max: cfg.Filter.MaxLimit}
	filterSvc := entityfilter.NewService(store, limits, log.Logger)
	options := entityfilter.NewOptionProvider(store, log.Logger)
	runner := actions.NewRunner(filterSvc, collector, history, log.Logger)

	health.Register("home_assistant", func(ctx context.Context) metrics.HealthStatus {
		if !haClient.IsConnected() {
			return metrics.NewHealthStatus(metrics.StatusDegraded, "not connected; serving the last snapshot")
		}
		if err := haClient.HealthCheck(ctx); err != nil {
			return metrics.NewHealthStatus(metrics.StatusDegraded, err.Error())
		}
		return metrics.NewHealthStatus(metrics.StatusHealthy, "connected")
	})
	health.Register("registry", func(ctx context.Context) metrics.HealthStatus {
		if !store.Loaded() {
			return metrics.NewHealthStatus(metrics.StatusUnhealthy, registry.ErrNotLoaded.Error())
		}
		return metrics.NewHealthStatus(metrics.StatusHealthy, "snapshot loaded").WithDetails(store.Stats())
	})

	var hub *websocket.Hub
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(websocket.HubOptions{
			PingInterval: time.Duration(cfg.WebSocket.PingInterval) * time.Second,
			WriteTimeout: time.Duration(cfg.WebSocket.WriteTimeout) * time.Second,
		}, collector, log.Logger)
		hub.SetCaller(runner)
		hub.WatchOptions(options)
		hub.WatchRegistry(store)
		hub.WatchCalls(runner)
		haClient.SetConnectionStateHandler(hub.ConnectionStateHandler())
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, log.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer mqttClient.Close()

		bridge := mqtt.NewBridge(mqttClient, cfg.MQTT.TopicPrefix, runner, collector, log.Logger)
		if err := bridge.Start(); err != nil {
			return err
		}

		health.Register("mqtt", func(ctx context.Context) metrics.HealthStatus {
			if err := mqttClient.HealthCheck(ctx); err != nil {
				return metrics.NewHealthStatus(metrics.StatusDegraded, err.Error())
			}
			return metrics.NewHealthStatus(metrics.StatusHealthy, "connected")
		})
	}

	deps := handlers.Dependencies{
		Runner:  runner,
		Options: options,
		Limits:  limits,
		Store:   store,
		Mirror:  mirrorSvc,
		Calls:   calls,
		Hub:     hub,
		Health:  health,
		Logger:  log.Logger,
	}
	router := api.NewRouter(cfg, deps, collector, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if hub != nil {
		go hub.Run(runCtx)
	}

	mirrorDone := make(chan struct{})
	go func() {
		defer close(mirrorDone)
		mirrorSvc.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-mirrorDone
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
	}

	cancel()
	<-mirrorDone

	if err := haClient.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to close Home Assistant connection")
	}

	return nil
}
