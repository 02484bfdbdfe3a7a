package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hauke92/mindgate/internal/domain"
)

// LimitService resolves and maintains per-app time limits against the
// global default.
type LimitService struct {
	policies domain.PolicyRepository
	settings domain.SettingsSource
}

func NewLimitService(policies domain.PolicyRepository, settings domain.SettingsSource) *LimitService {
	return &LimitService{policies: policies, settings: settings}
}

// AppTimeLimitInfo reports the effective limit for pkg and whether it
// comes from the global default. Apps without an explicit override track
// later changes to the default.
func (l *LimitService) AppTimeLimitInfo(ctx context.Context, pkg string) (domain.TimeLimitInfo, error) {
	settings, err := l.settings.Settings(ctx)
	if err != nil {
		return domain.TimeLimitInfo{}, fmt.Errorf("failed to read settings: %w", err)
	}
	policy, err := l.policies.GetPolicy(ctx, pkg)
	if err != nil {
		return domain.TimeLimitInfo{}, fmt.Errorf("failed to read policy for %s: %w", pkg, err)
	}

	if policy.TimeLimitMinutes != nil {
		return domain.TimeLimitInfo{Minutes: *policy.TimeLimitMinutes, UsesDefault: false}, nil
	}
	return domain.TimeLimitInfo{Minutes: settings.DefaultTimeLimitMinutes, UsesDefault: true}, nil
}

// UpdateAppTimeLimit sets pkg's per-app limit. Values are clamped to the
// allowed range. A requested value equal to the current global default is
// stored as "use default", so apps never explicitly overridden keep
// following the default when it later changes.
func (l *LimitService) UpdateAppTimeLimit(ctx context.Context, pkg string, minutes int) error {
	if minutes < domain.MinTimeLimitMinutes {
		minutes = domain.MinTimeLimitMinutes
	}
	if minutes > domain.MaxTimeLimitMinutes {
		minutes = domain.MaxTimeLimitMinutes
	}

	settings, err := l.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var override *int
	if minutes != settings.DefaultTimeLimitMinutes {
		override = &minutes
	}
	if err := l.policies.SetTimeLimit(ctx, pkg, override); err != nil {
		return fmt.Errorf("failed to persist time limit for %s: %w", pkg, err)
	}

	slog.Info("App time limit updated", "package", pkg, "minutes", minutes, "uses_default", override == nil)
	return nil
}

// ClearAppTimeLimit removes pkg's override so it follows the global
// default again.
func (l *LimitService) ClearAppTimeLimit(ctx context.Context, pkg string) error {
	if err := l.policies.SetTimeLimit(ctx, pkg, nil); err != nil {
		return fmt.Errorf("failed to clear time limit for %s: %w", pkg, err)
	}
	slog.Info("App time limit cleared", "package", pkg)
	return nil
}
