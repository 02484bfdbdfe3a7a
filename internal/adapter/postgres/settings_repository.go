package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hauke92/mindgate/internal/domain"
)

// SettingsRepo reads and writes the global settings singleton row. The
// migration seeds the row, so reads never miss.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

var _ domain.SettingsSource = (*SettingsRepo)(nil)
var _ domain.SettingsWriter = (*SettingsRepo)(nil)

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Settings(ctx context.Context) (domain.Settings, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT enable_time_limit_prompt, enable_math_challenge, default_time_limit_minutes,
		        session_expiry_countdown_seconds, math_difficulty
		 FROM settings`,
	)

	var s domain.Settings
	var difficulty string
	err := row.Scan(
		&s.EnableTimeLimitPrompt,
		&s.EnableMathChallenge,
		&s.DefaultTimeLimitMinutes,
		&s.SessionExpiryCountdownSeconds,
		&difficulty,
	)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	s.MathDifficulty = domain.ParseMathDifficulty(difficulty)
	return s, nil
}

func (r *SettingsRepo) UpdateSettings(ctx context.Context, s domain.Settings) error {
	s = s.Clamped()
	_, err := r.pool.Exec(ctx,
		`UPDATE settings
		 SET enable_time_limit_prompt = $1,
		     enable_math_challenge = $2,
		     default_time_limit_minutes = $3,
		     session_expiry_countdown_seconds = $4,
		     math_difficulty = $5,
		     updated_at = now()`,
		s.EnableTimeLimitPrompt,
		s.EnableMathChallenge,
		s.DefaultTimeLimitMinutes,
		s.SessionExpiryCountdownSeconds,
		string(s.MathDifficulty),
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
