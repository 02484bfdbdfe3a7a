// Command sweep runs one reconciliation pass against the database and
// exits. It force-expires sessions whose deadlines passed while no daemon
// was running, then purges sessions past retention. Intended for cron or a
// Kubernetes Job next to a long-lived daemon deployment.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hauke92/mindgate/internal/adapter/postgres"
	"github.com/hauke92/mindgate/internal/platform/config"
	"github.com/hauke92/mindgate/internal/platform/logging"
	"github.com/hauke92/mindgate/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required, there is nothing to sweep without a database")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.NewSessionStore(pool)
	repo := session.NewRepository(store, clockwork.NewRealClock(), cfg.SessionRetention)
	defer repo.Stop()

	expired, err := repo.EmitExpiredSessions(ctx)
	if err != nil {
		slog.Error("Sweep failed", "error", err)
		os.Exit(1)
	}

	deleted, err := repo.CleanupOldSessions(ctx)
	if err != nil {
		slog.Error("Cleanup failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Sweep complete", "expired", expired, "deleted", deleted)
}
