package domain

import "errors"

var (
	ErrChallengeNotFound = errors.New("challenge not found or expired")
	ErrNotInitialized    = errors.New("session repository not initialized")
)
