package domain

import "context"

// MathDifficulty selects how hard the expiry-time math challenge is.
type MathDifficulty string

const (
	MathEasy   MathDifficulty = "easy"
	MathMedium MathDifficulty = "medium"
	MathHard   MathDifficulty = "hard"
)

// ParseMathDifficulty maps a stored string to a difficulty, defaulting to easy.
func ParseMathDifficulty(s string) MathDifficulty {
	switch MathDifficulty(s) {
	case MathMedium:
		return MathMedium
	case MathHard:
		return MathHard
	default:
		return MathEasy
	}
}

// Bounds enforced at the settings write boundary. The core always receives
// already-clamped values.
const (
	MinTimeLimitMinutes = 5
	MaxTimeLimitMinutes = 480

	MinExpiryCountdownSeconds = 0
	MaxExpiryCountdownSeconds = 30
)

// Settings is the global mutable settings record, read as an immutable
// snapshot per decision.
type Settings struct {
	EnableTimeLimitPrompt         bool           `json:"enable_time_limit_prompt"`
	EnableMathChallenge           bool           `json:"enable_math_challenge"`
	DefaultTimeLimitMinutes       int            `json:"default_time_limit_minutes"`
	SessionExpiryCountdownSeconds int            `json:"session_expiry_countdown_seconds"`
	MathDifficulty                MathDifficulty `json:"math_difficulty"`
}

// DefaultSettings is the initial settings record for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		EnableTimeLimitPrompt:         true,
		EnableMathChallenge:           false,
		DefaultTimeLimitMinutes:       30,
		SessionExpiryCountdownSeconds: 10,
		MathDifficulty:                MathEasy,
	}
}

// Clamped returns a copy with out-of-range values pulled into bounds.
// Applied at the write boundary, never at decision time.
func (s Settings) Clamped() Settings {
	s.DefaultTimeLimitMinutes = clampInt(s.DefaultTimeLimitMinutes, MinTimeLimitMinutes, MaxTimeLimitMinutes)
	s.SessionExpiryCountdownSeconds = clampInt(s.SessionExpiryCountdownSeconds, MinExpiryCountdownSeconds, MaxExpiryCountdownSeconds)
	s.MathDifficulty = ParseMathDifficulty(string(s.MathDifficulty))
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SettingsSource reads the current settings snapshot. Decisions re-fetch it
// every time so they always see the freshest values.
type SettingsSource interface {
	Settings(ctx context.Context) (Settings, error)
}

// SettingsWriter persists a new settings record. Implementations clamp
// before writing.
type SettingsWriter interface {
	UpdateSettings(ctx context.Context, s Settings) error
}
