package enforcement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/reliability"
)

func testConfig() Config {
	return Config{ThrottleRate: 0.5, ThrottleDuration: time.Hour, SuspendDuration: 24 * time.Hour}
}

func TestEvaluateTransitionToQuarantineIssuesSuspend(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	transition := reliability.Transition{AgentID: agentID, Occurred: true, From: model.Probation, To: model.Quarantine}

	now := time.Now()
	action, ok := engine.Evaluate(transition, now)
	require.True(t, ok)
	require.Equal(t, model.Suspend, action.Kind)
	require.Equal(t, 24*time.Hour, action.Duration)
	require.Equal(t, "tier_transition:probation->quarantine", action.Reason)
	require.Equal(t, now.Add(24*time.Hour), action.ExpiresAt)
}

func TestEvaluateTransitionToProbationIssuesThrottle(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	transition := reliability.Transition{AgentID: agentID, Occurred: true, From: model.Watch, To: model.Probation}

	action, ok := engine.Evaluate(transition, time.Now())
	require.True(t, ok)
	require.Equal(t, model.Throttle, action.Kind)
	require.Equal(t, 0.5, action.Rate)
}

func TestEvaluateStayInProbationIssuesEscalate(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	transition := reliability.Transition{AgentID: agentID, Occurred: false, From: model.Probation, To: model.Probation}

	action, ok := engine.Evaluate(transition, time.Now())
	require.True(t, ok)
	require.Equal(t, model.Escalate, action.Kind)
	require.Equal(t, "probation_repeat_fail", action.Reason)
	require.True(t, action.ExpiresAt.IsZero())
}

func TestEvaluateNoTransitionOutsideProbationIssuesNoAction(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	transition := reliability.Transition{AgentID: agentID, Occurred: false, From: model.Good, To: model.Good}

	_, ok := engine.Evaluate(transition, time.Now())
	require.False(t, ok)
}

func TestEvaluateCoalescesRepeatedSuspendWithinExpiry(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	now := time.Now()
	transition := reliability.Transition{AgentID: agentID, Occurred: true, From: model.Probation, To: model.Quarantine}

	first, ok := engine.Evaluate(transition, now)
	require.True(t, ok)
	require.Equal(t, model.Suspend, first.Kind)

	_, ok = engine.Evaluate(transition, now.Add(time.Minute))
	require.False(t, ok, "identical action within the suspend's own expiry should be coalesced")
}

func TestListSinceFiltersByTimestamp(t *testing.T) {
	engine := NewEngine(testConfig())
	agentID := ids.NewAgentId()
	now := time.Now()
	transition := reliability.Transition{AgentID: agentID, Occurred: true, From: model.Good, To: model.Watch}
	_, ok := engine.Evaluate(transition, now)
	require.True(t, ok)

	require.Len(t, engine.ListSince(agentID, now.Add(-time.Minute)), 1)
	require.Empty(t, engine.ListSince(agentID, now.Add(time.Minute)))
}
