package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
)

func TestAppendArtifactIsIdempotent(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskID := ids.NewTaskId()
	artifact := model.Artifact{ID: ids.NewArtifactId(), TaskID: taskID, Kind: "diff", Payload: []byte("x")}

	require.NoError(t, store.AppendArtifact(ctx, taskID, artifact))
	require.NoError(t, store.AppendArtifact(ctx, taskID, artifact))

	got, err := store.ListArtifacts(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListArtifactsPreservesAppendOrder(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskID := ids.NewTaskId()

	first := model.Artifact{ID: ids.NewArtifactId(), TaskID: taskID, Kind: "diff"}
	second := model.Artifact{ID: ids.NewArtifactId(), TaskID: taskID, Kind: "test_report"}
	require.NoError(t, store.AppendArtifact(ctx, taskID, first))
	require.NoError(t, store.AppendArtifact(ctx, taskID, second))

	got, err := store.ListArtifacts(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, []model.Artifact{first, second}, got)
}

func TestAppendToolCallIsIdempotent(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskID := ids.NewTaskId()
	record := model.ToolCallRecord{ID: ids.NewToolCallId(), TaskID: taskID, ToolName: "search"}

	require.NoError(t, store.AppendToolCall(ctx, taskID, record))
	require.NoError(t, store.AppendToolCall(ctx, taskID, record))

	got, err := store.ListToolCalls(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestUpdateValidationSetsStatusOnMatchingRecord(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskID := ids.NewTaskId()
	record := model.ToolCallRecord{ID: ids.NewToolCallId(), TaskID: taskID, ToolName: "search"}
	require.NoError(t, store.AppendToolCall(ctx, taskID, record))

	require.NoError(t, store.UpdateValidation(ctx, taskID, record.ID, model.ValidationStatus{State: model.Invalid, Reason: "disallowed_tool"}))

	got, err := store.ListToolCalls(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, model.Invalid, got[0].Validation.State)
	require.Equal(t, "disallowed_tool", got[0].Validation.Reason)
}

func TestUpdateValidationOnUnknownCallIsNoop(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskID := ids.NewTaskId()

	require.NoError(t, store.UpdateValidation(ctx, taskID, ids.NewToolCallId(), model.ValidationStatus{State: model.Valid}))
}

func TestListArtifactsIsolatesTasks(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	taskA, taskB := ids.NewTaskId(), ids.NewTaskId()

	require.NoError(t, store.AppendArtifact(ctx, taskA, model.Artifact{ID: ids.NewArtifactId(), TaskID: taskA}))

	gotB, err := store.ListArtifacts(ctx, taskB)
	require.NoError(t, err)
	require.Empty(t, gotB)
}
