package model

import (
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// EnforcementKind is the discriminant of EnforcementAction (spec §4.11).
type EnforcementKind string

const (
	Warn     EnforcementKind = "warn"
	Throttle EnforcementKind = "throttle"
	Suspend  EnforcementKind = "suspend"
	Escalate EnforcementKind = "escalate"
)

// EnforcementAction is the deterministic output of the Enforcement Engine's
// tier-transition table (spec §4.11). Rate and Duration are populated only
// for the Kind that uses them.
type EnforcementAction struct {
	AgentID  ids.AgentId
	Kind     EnforcementKind
	Rate     float64       // set when Kind == Throttle; multiplier against baseline
	Duration time.Duration // set when Kind == Throttle or Suspend
	Reason   string        // the tier transition that produced this action
	FromTier Tier
	ToTier   Tier
	IssuedAt time.Time
	// ExpiresAt is the instant this action stops governing Agent.Status. It
	// is the zero Time for Kinds that carry no Duration (Warn, Escalate).
	ExpiresAt time.Time
}
