package ares

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/config"
	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/telemetry"
)

func newTestCore() *Core {
	return New(config.Default(), telemetry.NoopSet())
}

func criteriaWithCodeAndTests() model.AcceptanceCriteria {
	return model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true},
			{Kind: "test_report", Required: true},
		},
		Tools: []model.ToolRequirement{{ToolName: "search", MinInvocations: 0, MaxInvocations: 5}},
	}
}

func TestCoreHappyPathProducesPassAndKeepsAgentGood(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-1", []string{"code"})
	require.NoError(t, err)

	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("package main"), Hash: "h1",
	}))
	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "test_report", Payload: []byte("PASS"), Hash: "h2",
	}))
	now := time.Now()
	require.NoError(t, core.RecordToolCall(ctx, taskID, model.ToolCallRecord{
		ID: ids.NewToolCallId(), TaskID: taskID, ToolName: "search", Result: "ok", StartedAt: now, FinishedAt: now.Add(time.Millisecond),
	}))

	verdict, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.Pass, verdict.Outcome)

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskVerified, task.State)

	reliability, err := core.GetReliability(agentID)
	require.NoError(t, err)
	require.Equal(t, model.Good, reliability.Tier)

	agent, err := core.GetAgent(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, model.AgentActive, agent.Status)
}

func TestCoreMissingArtifactFailsAndRollsBackWithoutSnapshot(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-2", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("package main"), Hash: "h1",
	}))

	verdict, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.Fail, verdict.Outcome)
	require.Contains(t, verdict.Reasons, "missing_artifact:test_report")

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskRolledBack, task.State)

	reliability, err := core.GetReliability(agentID)
	require.NoError(t, err)
	require.InDelta(t, 0.9, reliability.Score, 1e-9)
	require.Equal(t, 1, reliability.ConsecutiveFailures)
	require.Equal(t, model.Good, reliability.Tier)
}

func TestCoreCompleteTaskIsIdempotent(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-3", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("x"), Hash: "h1",
	}))
	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "test_report", Payload: []byte("y"), Hash: "h2",
	}))

	first, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)

	second, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, first.ProducedAt, second.ProducedAt)
	require.Equal(t, first.Outcome, second.Outcome)
}

func TestCoreRollbackWithSnapshotSucceeds(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()
	core.RegisterRestoreHandler("filesystem", func(ctx context.Context, opaqueState []byte) error {
		return nil
	})

	agentID, err := core.RegisterAgent(ctx, "agent-4", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("x"), Hash: "h1",
	}))
	require.NoError(t, core.CaptureSnapshot(ctx, taskID, "filesystem", []byte("state")))

	sub := core.Subscribe(eventTaskTopic(taskID), 16)
	defer sub.Close()

	verdict, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.Fail, verdict.Outcome)

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskRolledBack, task.State)

	sawSnapshotRestored := false
	for i := 0; i < 20; i++ {
		select {
		case ev := <-sub.Events():
			if ev.Kind == model.SnapshotRestored {
				sawSnapshotRestored = true
				require.NotNil(t, ev.Snapshot.RestoreRecord)
				require.Equal(t, model.Restored, ev.Snapshot.RestoreRecord.Outcome)
			}
		default:
		}
	}
	require.True(t, sawSnapshotRestored)
}

func TestCoreRollbackWithFailingHandlerReportsFailure(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()
	core.RegisterRestoreHandler("filesystem", func(ctx context.Context, opaqueState []byte) error {
		return errors.New("locked")
	})

	agentID, err := core.RegisterAgent(ctx, "agent-5", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("x"), Hash: "h1",
	}))
	require.NoError(t, core.CaptureSnapshot(ctx, taskID, "filesystem", []byte("state")))

	verdict, err := core.CompleteTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.Fail, verdict.Outcome)

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskRolledBack, task.State)
}

func TestCoreFiveConsecutiveFailuresSuspendsAgent(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-6", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
		require.NoError(t, err)
		require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
			ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("x"), Hash: "h1",
		}))
		_, err = core.CompleteTask(ctx, taskID)
		require.NoError(t, err)
	}

	reliability, err := core.GetReliability(agentID)
	require.NoError(t, err)
	require.Equal(t, 5, reliability.ConsecutiveFailures)
	require.Equal(t, model.Quarantine, reliability.Tier)

	agent, err := core.GetAgent(ctx, agentID)
	require.NoError(t, err)
	require.Equal(t, model.AgentSuspended, agent.Status)

	actions := core.ListEnforcement(agentID, time.Time{})
	require.NotEmpty(t, actions)
	require.Equal(t, model.Suspend, actions[len(actions)-1].Kind)
}

func TestCoreCancelTaskRunsRollback(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-7", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)

	require.NoError(t, core.CancelTask(ctx, taskID, "user_cancelled"))

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskRolledBack, task.State)
}

func TestCoreShutdownRollsBackInFlightTasksAndRejectsNewWork(t *testing.T) {
	core := newTestCore()
	ctx := context.Background()

	agentID, err := core.RegisterAgent(ctx, "agent-8", nil)
	require.NoError(t, err)
	taskID, err := core.CreateTask(ctx, agentID, "write a feature", criteriaWithCodeAndTests())
	require.NoError(t, err)
	require.NoError(t, core.AppendArtifact(ctx, taskID, model.Artifact{
		ID: ids.NewArtifactId(), TaskID: taskID, Kind: "code", Payload: []byte("x"), Hash: "h1",
	}))

	core.Shutdown(ctx, 0)

	task, err := core.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskRolledBack, task.State)

	_, err = core.RegisterAgent(ctx, "agent-9", nil)
	require.Error(t, err)
}

func eventTaskTopic(taskID ids.TaskId) string {
	return model.TaskTopic(taskID)
}
