// Package session owns the session lifecycle: creation, termination,
// per-session expiry timers, and the exactly-once expiry event stream.
//
// The Repository is a monitor: one mutex guards the timer registration map
// and every terminal transition. Timer callbacks and manual ends both go
// through the same remove-then-verify sequence, so no two ending actions
// for the same session id can both succeed.
package session
