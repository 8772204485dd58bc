// Package enforcement implements the Enforcement Engine (C11): a
// deterministic mapping from agent reliability tier transitions to
// enforcement actions (spec §4.11).
package enforcement

import (
	"fmt"
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/reliability"
)

type (
	// Config carries the durations applied by throttle/suspend actions,
	// sourced from immutable startup configuration.
	Config struct {
		ThrottleRate     float64
		ThrottleDuration time.Duration
		SuspendDuration  time.Duration
	}

	// Engine maps reliability tier transitions onto EnforcementActions and
	// coalesces repeated identical actions within their own expiry window
	// (spec §4.11: "idempotent on (agent, tier, issued_at-bucket)").
	Engine struct {
		cfg Config

		mu    sync.Mutex
		last  map[coalesceKey]time.Time
		issue map[ids.AgentId][]model.EnforcementAction
	}

	coalesceKey struct {
		agentID ids.AgentId
		tier    model.Tier
	}
)

// NewEngine constructs an Enforcement Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		last:  make(map[coalesceKey]time.Time),
		issue: make(map[ids.AgentId][]model.EnforcementAction),
	}
}

// Evaluate maps a reliability Transition onto an EnforcementAction per the
// table in spec §4.11. It returns (action, false) when the transition
// produces no action (e.g. no tier change and not a Probation re-Fail).
func (e *Engine) Evaluate(transition reliability.Transition, at time.Time) (model.EnforcementAction, bool) {
	var action model.EnforcementAction
	ok := true

	switch {
	case transition.Occurred && transition.To == model.Good:
		action = model.EnforcementAction{Kind: model.Warn}
	case transition.Occurred && transition.To == model.Watch:
		action = model.EnforcementAction{Kind: model.Warn}
	case transition.Occurred && transition.To == model.Probation:
		action = model.EnforcementAction{Kind: model.Throttle, Rate: e.cfg.ThrottleRate, Duration: e.cfg.ThrottleDuration}
	case transition.Occurred && transition.To == model.Quarantine:
		action = model.EnforcementAction{Kind: model.Suspend, Duration: e.cfg.SuspendDuration}
	case !transition.Occurred && transition.To == model.Probation:
		action = model.EnforcementAction{Kind: model.Escalate}
	default:
		ok = false
	}
	if !ok {
		return model.EnforcementAction{}, false
	}

	action.AgentID = transition.AgentID
	action.FromTier = transition.From
	action.ToTier = transition.To
	action.IssuedAt = at
	action.Reason = reasonFor(transition)
	if action.Duration > 0 {
		action.ExpiresAt = at.Add(action.Duration)
	}

	if e.coalesced(action) {
		return model.EnforcementAction{}, false
	}

	e.record(action)
	return action, true
}

// reasonFor renders a stable tag describing why an action was issued,
// mirroring the verdict Reasons tag style (spec §4.8).
func reasonFor(t reliability.Transition) string {
	if !t.Occurred {
		return "probation_repeat_fail"
	}
	return fmt.Sprintf("tier_transition:%s->%s", t.From, t.To)
}

// coalesced reports whether an identical action for this (agent, tier) was
// already issued within its own expiry window.
func (e *Engine) coalesced(action model.EnforcementAction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := coalesceKey{agentID: action.AgentID, tier: action.ToTier}
	prev, ok := e.last[key]
	if !ok {
		return false
	}
	expiry := e.expiryFor(action)
	return action.IssuedAt.Sub(prev) < expiry
}

func (e *Engine) expiryFor(action model.EnforcementAction) time.Duration {
	switch action.Kind {
	case model.Throttle:
		return e.cfg.ThrottleDuration
	case model.Suspend:
		return e.cfg.SuspendDuration
	default:
		return 0
	}
}

func (e *Engine) record(action model.EnforcementAction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := coalesceKey{agentID: action.AgentID, tier: action.ToTier}
	e.last[key] = action.IssuedAt
	e.issue[action.AgentID] = append(e.issue[action.AgentID], action)
}

// ListSince returns every EnforcementAction issued for agentID at or after
// since, in issuance order (spec §6 ListEnforcement(agent_id, since)).
func (e *Engine) ListSince(agentID ids.AgentId, since time.Time) []model.EnforcementAction {
	e.mu.Lock()
	defer e.mu.Unlock()

	all := e.issue[agentID]
	out := make([]model.EnforcementAction, 0, len(all))
	for _, a := range all {
		if !a.IssuedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out
}
