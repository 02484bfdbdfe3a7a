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
	goredis "github.com/redis/go-redis/v9"

	"github.com/hauke92/mindgate/internal/adapter/httpserver"
	"github.com/hauke92/mindgate/internal/adapter/postgres"
	"github.com/hauke92/mindgate/internal/adapter/redis"
	"github.com/hauke92/mindgate/internal/adapter/websocket"
	"github.com/hauke92/mindgate/internal/app"
	"github.com/hauke92/mindgate/internal/challenge"
	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/gate"
	"github.com/hauke92/mindgate/internal/platform/config"
	"github.com/hauke92/mindgate/internal/platform/logging"
	"github.com/hauke92/mindgate/internal/session"
)

// stores bundles the persistence backends picked at startup. With no
// DATABASE_URL everything lives in memory, which is how the launcher runs
// the daemon on-device.
type stores struct {
	sessions domain.SessionStore
	policies domain.PolicyRepository
	settings app.SettingsStore

	pool         *pgxpool.Pool
	redisClient  *goredis.Client
	stopEviction func()
}

func (s *stores) close() {
	if s.stopEviction != nil {
		s.stopEviction()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *stores) healthChecks() []httpserver.HealthCheck {
	var checks []httpserver.HealthCheck
	if s.pool != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return s.pool.Ping(ctx) },
		})
	}
	if s.redisClient != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return s.redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStores(cfg *config.Config) *stores {
	if cfg.DatabaseURL == "" {
		slog.Info("No DATABASE_URL configured, running with in-memory stores")
		return &stores{
			sessions: session.NewMemoryStore(),
			policies: gate.NewMemoryPolicyStore(),
			settings: gate.NewMemorySettingsStore(),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	s := &stores{
		sessions: postgres.NewSessionStore(pool),
		policies: postgres.NewPolicyRepo(pool),
		settings: postgres.NewSettingsRepo(pool),
		pool:     pool,
	}

	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		cache := redis.NewPolicyCacheRepo(client, s.policies, 10*time.Second)
		s.stopEviction = cache.StartEvictionTimer(time.Minute)

		s.policies = cache
		s.redisClient = client
	}

	return s
}

func runGracefulShutdown(srv *httpserver.Server, repo *session.Repository, hub *websocket.Hub, maintenance *app.Maintenance, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		maintenance.Stop()
		hub.Stop()
		repo.Stop()
		cancel()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Daemon starting", "env", cfg.AppEnv, "port", cfg.Port)

	backends := setupStores(cfg)
	defer backends.close()

	repo := session.NewRepository(backends.sessions, clock, cfg.SessionRetention)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Initialize(initCtx); err != nil {
		initCancel()
		slog.Error("Failed to restore active sessions", "error", err)
		os.Exit(1)
	}
	initCancel()

	launchGate := gate.New(backends.policies, backends.settings, gate.NewDefaultClassifier(), repo)
	limits := gate.NewLimitService(backends.policies, backends.settings)
	challenges := challenge.NewRegistry(clock, challenge.DefaultTTL)

	appSvc := app.NewService(repo, launchGate, limits, challenges, backends.policies, backends.settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maintenance := app.NewMaintenance(repo, clock, cfg.SweepInterval, cfg.CleanupInterval)
	go maintenance.Run(ctx)

	hub := websocket.NewHub(appSvc, backends.settings, cfg.MaxClientsPerStream)
	go hub.Run(ctx)

	srv := httpserver.NewServer(cfg, appSvc, hub, backends.healthChecks())

	done := runGracefulShutdown(srv, repo, hub, maintenance, cancel)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
