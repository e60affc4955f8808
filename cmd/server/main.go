package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/httpserver"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/postgres"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/redis"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/sensorcore"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/websocket"
	"github.com/tompaana/sensorcore-explorer/internal/app"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/platform/config"
	"github.com/tompaana/sensorcore-explorer/internal/platform/logging"
	"github.com/tompaana/sensorcore-explorer/internal/platform/retry"
	"github.com/tompaana/sensorcore-explorer/internal/platform/version"
)

type metricSet struct {
	registry  *prometheus.Registry
	session   *metrics.SessionMetrics
	breaker   *metrics.BreakerMetrics
	websocket *metrics.WebSocketMetrics
	http      *metrics.HTTPMetrics
	db        *metrics.DBMetrics
}

func setupMetrics() metricSet {
	reg := metrics.NewRegistry()
	return metricSet{
		registry:  reg,
		session:   metrics.NewSessionMetrics(reg),
		breaker:   metrics.NewBreakerMetrics(reg),
		websocket: metrics.NewWebSocketMetrics(reg),
		http:      metrics.NewHTTPMetrics(reg),
		db:        metrics.NewDBMetrics(reg),
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DBMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config, m *metrics.BreakerMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupPlatform returns the sensor platform and, in bridge mode, a health
// check reporting an open circuit.
func setupPlatform(cfg *config.Config, clock clockwork.Clock, m *metrics.BreakerMetrics) (domain.SensorPlatform, *httpserver.HealthCheck) {
	if cfg.SensorMode == config.SensorModeBridge {
		bridge := sensorcore.NewBridge(sensorcore.BridgeConfig{
			BaseURL: cfg.SensorBridgeURL,
			Timeout: cfg.SensorBridgeTimeout,
		}, m)
		check := &httpserver.HealthCheck{
			Name: "sensor_bridge",
			Check: func(context.Context) error {
				if bridge.BreakerState() == gobreaker.StateOpen {
					return errors.New("sensor bridge circuit open")
				}
				return nil
			},
		}
		slog.Info("Using sensor bridge", "url", cfg.SensorBridgeURL)
		return bridge, check
	}

	slog.Info("Using sensor simulator", "recordings", cfg.RecordingsDir, "seed_offset", cfg.SimulationSeedOffset)
	return sensorcore.NewSimulator(sensorcore.SimulatorConfig{
		Dir:        cfg.RecordingsDir,
		SeedOffset: cfg.SimulationSeedOffset,
		Clock:      clock,
	}), nil
}

// startSession retries while the sensor bridge is unreachable. An SDK that
// reports itself unsupported is fatal.
func startSession(appSvc *app.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	policy := retry.StartupPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Sensor platform not reachable yet", "attempt", attempt, "backoff", backoff, "error", err)
	}
	if err := retry.DoVoid(ctx, policy, classifyStartError, appSvc.Start); err != nil {
		slog.Error("Failed to start sensor session", "error", err)
		os.Exit(1)
	}
}

// classifyStartError retries only when the platform could not be reached.
// SDK codes, including those behind ErrSDKUnsupported, are final answers.
func classifyStartError(err error) retry.Action {
	var se *domain.SensorError
	if errors.As(err, &se) && se.Code == domain.SenseGeneralFailure {
		return retry.Retry
	}
	return retry.Stop
}

func runGracefulShutdown(srv *httpserver.Server, appSvc *app.Service, hub *websocket.Hub, stopTicker context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopTicker()
		appSvc.Stop(shutdownCtx)
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"service", version.Service,
		"version", version.Version,
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"sensor_mode", cfg.SensorMode)

	m := setupMetrics()
	var healthChecks []httpserver.HealthCheck

	var store domain.RecordStore = app.NewMemoryRecordStore()
	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg, m.breaker)
		defer func() { _ = redisClient.Close() }()
		store = redis.NewRecordStore(redisClient)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	// Pass nil explicitly to avoid a typed-nil interface.
	var archive domain.RefreshArchive
	if cfg.DatabaseURL != "" {
		pool := setupDB(cfg, m.db)
		defer pool.Close()
		archive = postgres.NewRefreshArchive(pool)
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	platform, bridgeCheck := setupPlatform(cfg, clock, m.breaker)
	if bridgeCheck != nil {
		healthChecks = append(healthChecks, *bridgeCheck)
	}

	hub := websocket.NewHub(cfg.MaxWebSocketConnections, websocket.NewCheckOrigin(cfg.AppEnv == "development"), m.websocket)

	appSvc := app.NewService(platform, store, archive, hub, clock, m.session, app.Options{
		Lookback:   cfg.HistoryLookback,
		MaxRecords: cfg.MaxRecordsPerList,
		MaxNotices: cfg.MaxNotices,
	})
	startSession(appSvc)

	tickerCtx, stopTicker := context.WithCancel(context.Background())
	defer stopTicker()
	if cfg.AutoRefresh > 0 {
		go app.NewRefreshTicker(appSvc, clock, cfg.AutoRefresh).Run(tickerCtx)
		slog.Info("Auto refresh enabled", "interval", cfg.AutoRefresh)
	}

	srv := httpserver.NewServer(cfg, appSvc, hub, m.registry, m.http, healthChecks)

	done := runGracefulShutdown(srv, appSvc, hub, stopTicker)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
