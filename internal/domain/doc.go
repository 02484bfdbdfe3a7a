// Package domain defines the core domain types and contracts of the
// friction-gating engine.
//
// This package contains concept-oriented files (session.go, policy.go,
// settings.go, launch.go, errors.go) with shared types and cross-cutting
// interfaces. No implementation code - just contracts. Prevents circular
// imports by keeping interfaces on the consumer side.
package domain
