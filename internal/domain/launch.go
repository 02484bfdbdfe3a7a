package domain

import "time"

// Decision classifies a requested launch into exactly one outcome. The
// caller translates it into UI: launch directly, show the reason prompt, or
// collect an intended duration first.
type Decision string

const (
	// Permit allows the platform launch to proceed.
	Permit Decision = "permit"
	// RequireFriction blocks the launch until the caller collects a reason.
	RequireFriction Decision = "require_friction"
	// RequireTimeLimitPrompt asks the caller to collect an intended usage
	// duration before retrying.
	RequireTimeLimitPrompt Decision = "require_time_limit_prompt"
)

// LaunchRequest describes one launch attempt.
type LaunchRequest struct {
	Package string
	// BypassFriction is set when the caller has already collected a reason
	// or a completed challenge for this attempt.
	BypassFriction bool
	// Planned carries a user-supplied intended duration, when the caller
	// has already collected one.
	Planned *time.Duration
}

// LaunchResult is the gate's answer for one launch attempt.
type LaunchResult struct {
	Decision Decision `json:"decision"`
	// SessionID is set when the attempt started a timed session
	// (Decision == Permit and a duration was supplied).
	SessionID int64 `json:"session_id,omitempty"`
}
