// Package gate classifies app launch requests into permit, friction, or
// prompt outcomes. Decisions read a fresh policy and settings snapshot and
// have no side effects beyond starting a session when a planned duration
// accompanies the request.
package gate
