package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauke92/mindgate/internal/domain"
)

// PolicyRepo stores per-app policy facts. Packages without a row have the
// zero policy; rows are created lazily on first write.
type PolicyRepo struct {
	pool *pgxpool.Pool
}

var _ domain.PolicyRepository = (*PolicyRepo)(nil)

func NewPolicyRepo(pool *pgxpool.Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

func (r *PolicyRepo) GetPolicy(ctx context.Context, pkg string) (domain.AppPolicy, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT package, distracting, hidden, time_limit_minutes FROM app_policies WHERE package = $1",
		pkg,
	)

	var p domain.AppPolicy
	err := row.Scan(&p.Package, &p.Distracting, &p.Hidden, &p.TimeLimitMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AppPolicy{Package: pkg}, nil
	}
	if err != nil {
		return domain.AppPolicy{}, fmt.Errorf("failed to get policy for %s: %w", pkg, err)
	}
	return p, nil
}

func (r *PolicyRepo) SetTimeLimit(ctx context.Context, pkg string, minutes *int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_policies (package, time_limit_minutes)
		 VALUES ($1, $2)
		 ON CONFLICT (package) DO UPDATE
		 SET time_limit_minutes = EXCLUDED.time_limit_minutes, updated_at = now()`,
		pkg, minutes,
	)
	if err != nil {
		return fmt.Errorf("failed to set time limit for %s: %w", pkg, err)
	}
	return nil
}

func (r *PolicyRepo) SetFlags(ctx context.Context, pkg string, distracting, hidden bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_policies (package, distracting, hidden)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (package) DO UPDATE
		 SET distracting = EXCLUDED.distracting, hidden = EXCLUDED.hidden, updated_at = now()`,
		pkg, distracting, hidden,
	)
	if err != nil {
		return fmt.Errorf("failed to set flags for %s: %w", pkg, err)
	}
	return nil
}
