package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/metrics"
)

// SessionStarter is the slice of the session repository the gate needs to
// convert a supplied duration into a running session.
type SessionStarter interface {
	StartSession(ctx context.Context, pkg string, planned time.Duration) (int64, error)
}

// Gate decides what must happen before an app launch proceeds. The
// classifier is optional; without one, only explicit policy flags drive
// prompt eligibility.
type Gate struct {
	policies   domain.PolicyReader
	settings   domain.SettingsSource
	classifier domain.Classifier
	sessions   SessionStarter
}

func New(policies domain.PolicyReader, settings domain.SettingsSource, classifier domain.Classifier, sessions SessionStarter) *Gate {
	return &Gate{
		policies:   policies,
		settings:   settings,
		classifier: classifier,
		sessions:   sessions,
	}
}

// Decide classifies a launch request into exactly one outcome. First match
// wins:
//
//  1. A supplied planned duration with time-limit prompting enabled starts
//     a session and permits the launch. Supplying a duration already
//     implies conscious intent, so no friction is shown even for a
//     distracting app.
//  2. A distracting app without a friction bypass requires friction.
//  3. Everything else is permitted.
func (g *Gate) Decide(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
	if req.Package == "" {
		return domain.LaunchResult{}, fmt.Errorf("package identifier must not be empty")
	}

	settings, err := g.settings.Settings(ctx)
	if err != nil {
		return domain.LaunchResult{}, fmt.Errorf("failed to read settings: %w", err)
	}
	policy, err := g.policies.GetPolicy(ctx, req.Package)
	if err != nil {
		return domain.LaunchResult{}, fmt.Errorf("failed to read policy for %s: %w", req.Package, err)
	}

	result, err := g.decide(ctx, req, policy, settings)
	if err != nil {
		return domain.LaunchResult{}, err
	}

	metrics.GateDecisionsTotal.WithLabelValues(string(result.Decision)).Inc()
	slog.Info("Launch decision",
		"package", req.Package,
		"decision", result.Decision,
		"bypass_friction", req.BypassFriction,
		"has_duration", req.Planned != nil,
	)
	return result, nil
}

func (g *Gate) decide(ctx context.Context, req domain.LaunchRequest, policy domain.AppPolicy, settings domain.Settings) (domain.LaunchResult, error) {
	if req.Planned != nil && settings.EnableTimeLimitPrompt {
		id, err := g.sessions.StartSession(ctx, req.Package, *req.Planned)
		if err != nil {
			return domain.LaunchResult{}, fmt.Errorf("failed to start session for %s: %w", req.Package, err)
		}
		return domain.LaunchResult{Decision: domain.Permit, SessionID: id}, nil
	}

	if !req.BypassFriction && policy.Distracting {
		return domain.LaunchResult{Decision: domain.RequireFriction}, nil
	}

	return domain.LaunchResult{Decision: domain.Permit}, nil
}

// ShouldShowTimeLimitPrompt reports whether the caller should collect an
// intended duration before launching pkg. True when time-limit prompting
// is globally enabled and the app is distracting, hidden, or classified
// into a distraction-prone category.
func (g *Gate) ShouldShowTimeLimitPrompt(ctx context.Context, pkg string) (bool, error) {
	settings, err := g.settings.Settings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.EnableTimeLimitPrompt {
		return false, nil
	}

	policy, err := g.policies.GetPolicy(ctx, pkg)
	if err != nil {
		return false, fmt.Errorf("failed to read policy for %s: %w", pkg, err)
	}
	if policy.Distracting || policy.Hidden {
		return true, nil
	}

	if g.classifier != nil {
		if category, ok := g.classifier.Category(pkg); ok && category.DistractionProne() {
			return true, nil
		}
	}
	return false, nil
}

// ShouldShowMathChallenge reports whether ending or extending a session
// for pkg should demand a solved math challenge first. Challenges gate the
// expiry decision, not the launch.
func (g *Gate) ShouldShowMathChallenge(ctx context.Context, pkg string) (bool, error) {
	settings, err := g.settings.Settings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.EnableMathChallenge {
		return false, nil
	}

	policy, err := g.policies.GetPolicy(ctx, pkg)
	if err != nil {
		return false, fmt.Errorf("failed to read policy for %s: %w", pkg, err)
	}
	return policy.Distracting, nil
}
