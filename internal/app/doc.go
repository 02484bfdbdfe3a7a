// Package app orchestrates the launch flow: prompt eligibility, gate
// decisions, session lifecycle calls, math challenges, and the periodic
// maintenance loop. Handlers talk to this package, never to stores
// directly.
package app
