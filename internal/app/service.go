package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hauke92/mindgate/internal/challenge"
	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/gate"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
	"github.com/hauke92/mindgate/internal/session"
)

// SettingsStore combines the read and write side of settings persistence.
type SettingsStore interface {
	domain.SettingsSource
	domain.SettingsWriter
}

// Service drives one launch attempt through its state machine:
//
//	Requested -> {RequireTimeLimitPrompt, RequireFriction, Permit}
//
// A time-limit prompt answer comes back as a request with a planned
// duration; a friction answer comes back with BypassFriction set. Permit
// is terminal.
type Service struct {
	sessions   *session.Repository
	gate       *gate.Gate
	limits     *gate.LimitService
	challenges *challenge.Registry
	policies   domain.PolicyRepository
	settings   SettingsStore
}

func NewService(
	sessions *session.Repository,
	g *gate.Gate,
	limits *gate.LimitService,
	challenges *challenge.Registry,
	policies domain.PolicyRepository,
	settings SettingsStore,
) *Service {
	return &Service{
		sessions:   sessions,
		gate:       g,
		limits:     limits,
		challenges: challenges,
		policies:   policies,
		settings:   settings,
	}
}

// RequestLaunch handles one launch attempt. A request without a duration
// or bypass first checks prompt eligibility; an app with a session already
// running is permitted straight through under that session.
func (s *Service) RequestLaunch(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
	if req.Package == "" {
		return domain.LaunchResult{}, apperrors.ValidationError("package must not be empty")
	}

	if req.Planned == nil && !req.BypassFriction {
		running, err := s.sessions.ActiveSession(ctx, req.Package)
		if err != nil {
			return domain.LaunchResult{}, fmt.Errorf("failed to check running session for %s: %w", req.Package, err)
		}
		if running != nil {
			return domain.LaunchResult{Decision: domain.Permit, SessionID: running.ID}, nil
		}

		prompt, err := s.gate.ShouldShowTimeLimitPrompt(ctx, req.Package)
		if err != nil {
			return domain.LaunchResult{}, err
		}
		if prompt {
			return domain.LaunchResult{Decision: domain.RequireTimeLimitPrompt}, nil
		}
	}

	return s.gate.Decide(ctx, req)
}

// ActiveSessions lists all running sessions with their remaining time.
func (s *Service) ActiveSessions(ctx context.Context) ([]SessionView, error) {
	sessions, err := s.sessions.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, s.view(sess))
	}
	return views, nil
}

// GetSession loads a single session by id.
func (s *Service) GetSession(ctx context.Context, id int64) (SessionView, error) {
	sess, err := s.sessions.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(*sess), nil
}

// EndSession terminates a session. Idempotent.
func (s *Service) EndSession(ctx context.Context, id int64) error {
	return s.sessions.EndSession(ctx, id)
}

// EndSessionForApp ends the running session for pkg, if any. Idempotent.
// The launcher calls this when the user leaves an app without waiting for
// the timer.
func (s *Service) EndSessionForApp(ctx context.Context, pkg string) error {
	if pkg == "" {
		return apperrors.ValidationError("package must not be empty")
	}
	return s.sessions.EndSessionForApp(ctx, pkg)
}

// ExtendSession adds time to a session at expiry decision time. When the
// math challenge applies to the session's app, the caller must present a
// solved challenge id first.
func (s *Service) ExtendSession(ctx context.Context, id int64, extra time.Duration, challengeID string, answer int) (SessionView, error) {
	sess, err := s.sessions.Session(ctx, id)
	if err != nil {
		return SessionView{}, err
	}

	required, err := s.gate.ShouldShowMathChallenge(ctx, sess.Package)
	if err != nil {
		return SessionView{}, err
	}
	if required {
		if challengeID == "" {
			return SessionView{}, apperrors.ValidationError("extending this session requires a solved math challenge").
				WithField("package", sess.Package)
		}
		ok, err := s.challenges.Verify(challengeID, answer)
		if err != nil {
			return SessionView{}, apperrors.NotFoundError("challenge not found or expired").
				WithField("challenge_id", challengeID)
		}
		if !ok {
			return SessionView{}, apperrors.ValidationError("wrong answer").
				WithField("challenge_id", challengeID)
		}
	}

	extended, err := s.sessions.Extend(ctx, id, extra)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(extended), nil
}

// IssueChallenge creates a math challenge for pkg at the configured
// difficulty.
func (s *Service) IssueChallenge(ctx context.Context, pkg string) (challenge.Challenge, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return s.challenges.Issue(pkg, settings.MathDifficulty), nil
}

// VerifyChallenge checks a challenge answer without consuming anything
// else; used by the friction flow where solving a challenge grants a
// bypass.
func (s *Service) VerifyChallenge(id string, answer int) (bool, error) {
	return s.challenges.Verify(id, answer)
}

// Settings returns the current global settings snapshot.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	return s.settings.Settings(ctx)
}

// UpdateSettings persists new global settings, clamping out-of-range
// values instead of rejecting them.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	clamped := settings.Clamped()
	if err := s.settings.UpdateSettings(ctx, clamped); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to persist settings: %w", err)
	}
	return clamped, nil
}

// AppPolicy returns the stored flags and override for pkg.
func (s *Service) AppPolicy(ctx context.Context, pkg string) (domain.AppPolicy, error) {
	return s.policies.GetPolicy(ctx, pkg)
}

// SetAppFlags updates the distracting/hidden flags for pkg.
func (s *Service) SetAppFlags(ctx context.Context, pkg string, distracting, hidden bool) error {
	return s.policies.SetFlags(ctx, pkg, distracting, hidden)
}

// AppTimeLimitInfo reports the effective time limit for pkg.
func (s *Service) AppTimeLimitInfo(ctx context.Context, pkg string) (domain.TimeLimitInfo, error) {
	return s.limits.AppTimeLimitInfo(ctx, pkg)
}

// UpdateAppTimeLimit sets the per-app time limit for pkg.
func (s *Service) UpdateAppTimeLimit(ctx context.Context, pkg string, minutes int) error {
	return s.limits.UpdateAppTimeLimit(ctx, pkg, minutes)
}

// ClearAppTimeLimit drops the per-app override for pkg.
func (s *Service) ClearAppTimeLimit(ctx context.Context, pkg string) error {
	return s.limits.ClearAppTimeLimit(ctx, pkg)
}

// SubscribeExpirations exposes the session expiry stream.
func (s *Service) SubscribeExpirations() (<-chan domain.Session, func()) {
	return s.sessions.Subscribe()
}

// SessionView is a session enriched with its live remaining time.
type SessionView struct {
	domain.Session
	RemainingSeconds int64 `json:"remaining_seconds"`
}

func (s *Service) view(sess domain.Session) SessionView {
	remaining := time.Duration(0)
	if sess.Active {
		remaining = s.sessions.RemainingTime(sess)
	}
	return SessionView{
		Session:          sess,
		RemainingSeconds: int64(remaining.Seconds()),
	}
}
