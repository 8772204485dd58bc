// Package model defines the ARES data model (spec §3): Agent, Task,
// AcceptanceCriteria, ToolCallRecord, Artifact, Snapshot, Verdict,
// ReliabilityState, EnforcementAction, and the Event tagged union. Types here
// are plain values owned by their respective stores; nothing in this package
// holds a long-lived object graph (spec §9 "arena-and-index").
package model

import (
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// AgentStatus is the coarse-grained operational status of an Agent. It is a
// projection of the latest non-expired EnforcementAction (spec §3).
type AgentStatus string

const (
	AgentActive    AgentStatus = "active"
	AgentThrottled AgentStatus = "throttled"
	AgentSuspended AgentStatus = "suspended"
	AgentRetired   AgentStatus = "retired"
)

// Agent is an external AI worker observed by ARES, identified by a stable
// AgentId. Agent.Status and Agent.Reliability are mutated only by the
// Enforcement Engine and Reliability Scorer respectively, under the
// per-agent lock (spec §5).
type Agent struct {
	ID           ids.AgentId
	Name         string
	Capabilities map[string]struct{}
	Status       AgentStatus
	// StatusExpiresAt is the issuing EnforcementAction's ExpiresAt. The zero
	// Time means Status carries no expiry (AgentActive, AgentRetired, or a
	// Throttle/Suspend issued before expiry tracking existed).
	StatusExpiresAt time.Time
	Reliability     ReliabilityState
	CreatedAt       time.Time
}

// HasCapability reports whether the agent declared the given capability at
// registration.
func (a Agent) HasCapability(cap string) bool {
	_, ok := a.Capabilities[cap]
	return ok
}

// EffectiveStatus projects Status against StatusExpiresAt (spec §4.11: Agent
// Status is "a projection of the latest non-expired EnforcementAction"). A
// Throttled or Suspended status reverts to Active once now is past expiry.
func (a Agent) EffectiveStatus(now time.Time) AgentStatus {
	if (a.Status == AgentThrottled || a.Status == AgentSuspended) &&
		!a.StatusExpiresAt.IsZero() && now.After(a.StatusExpiresAt) {
		return AgentActive
	}
	return a.Status
}
