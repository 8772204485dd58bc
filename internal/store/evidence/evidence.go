// Package evidence provides the Evidence Store (C2): an append-only log of
// proof-of-work artifacts and tool-call records keyed by task, with
// idempotent appends and stable append-order iteration.
package evidence

import (
	"context"
	"sync"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
)

type (
	// Store is the append-only evidence log consulted by the Verification
	// Coordinator, the Rollback Coordinator, and audit queries (spec §4.2).
	Store interface {
		// AppendArtifact records artifact under task_id. Idempotent on
		// ArtifactId: a duplicate ID collapses silently, leaving the first
		// recorded artifact in place.
		AppendArtifact(ctx context.Context, taskID ids.TaskId, artifact model.Artifact) error

		// AppendToolCall records record under task_id. Idempotent on
		// ToolCallId.
		AppendToolCall(ctx context.Context, taskID ids.TaskId, record model.ToolCallRecord) error

		// ListArtifacts returns artifacts for task_id in append order.
		ListArtifacts(ctx context.Context, taskID ids.TaskId) ([]model.Artifact, error)

		// ListToolCalls returns tool-call records for task_id in append order.
		ListToolCalls(ctx context.Context, taskID ids.TaskId) ([]model.ToolCallRecord, error)

		// UpdateValidation sets the Validation field on the tool-call record
		// identified by callID, set exactly once by the Tool-Call Validator
		// (spec §3). A no-op if callID is not found under task_id.
		UpdateValidation(ctx context.Context, taskID ids.TaskId, callID ids.ToolCallId, status model.ValidationStatus) error
	}

	memStore struct {
		mu           sync.RWMutex
		artifacts    map[ids.TaskId][]model.Artifact
		artifactSeen map[ids.TaskId]map[ids.ArtifactId]struct{}
		toolCalls    map[ids.TaskId][]model.ToolCallRecord
		toolCallSeen map[ids.TaskId]map[ids.ToolCallId]struct{}
	}
)

// NewMemStore constructs an in-process Evidence Store. A durable backend
// satisfying the same Store interface can be substituted without changing
// any caller.
func NewMemStore() Store {
	return &memStore{
		artifacts:    make(map[ids.TaskId][]model.Artifact),
		artifactSeen: make(map[ids.TaskId]map[ids.ArtifactId]struct{}),
		toolCalls:    make(map[ids.TaskId][]model.ToolCallRecord),
		toolCallSeen: make(map[ids.TaskId]map[ids.ToolCallId]struct{}),
	}
}

func (s *memStore) AppendArtifact(_ context.Context, taskID ids.TaskId, artifact model.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.artifactSeen[taskID]
	if seen == nil {
		seen = make(map[ids.ArtifactId]struct{})
		s.artifactSeen[taskID] = seen
	}
	if _, ok := seen[artifact.ID]; ok {
		return nil
	}
	seen[artifact.ID] = struct{}{}
	s.artifacts[taskID] = append(s.artifacts[taskID], artifact)
	return nil
}

func (s *memStore) AppendToolCall(_ context.Context, taskID ids.TaskId, record model.ToolCallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.toolCallSeen[taskID]
	if seen == nil {
		seen = make(map[ids.ToolCallId]struct{})
		s.toolCallSeen[taskID] = seen
	}
	if _, ok := seen[record.ID]; ok {
		return nil
	}
	seen[record.ID] = struct{}{}
	s.toolCalls[taskID] = append(s.toolCalls[taskID], record)
	return nil
}

func (s *memStore) UpdateValidation(_ context.Context, taskID ids.TaskId, callID ids.ToolCallId, status model.ValidationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := s.toolCalls[taskID]
	for i := range calls {
		if calls[i].ID == callID {
			calls[i].Validation = status
			return nil
		}
	}
	return nil
}

func (s *memStore) ListArtifacts(_ context.Context, taskID ids.TaskId) ([]model.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Artifact, len(s.artifacts[taskID]))
	copy(out, s.artifacts[taskID])
	return out, nil
}

func (s *memStore) ListToolCalls(_ context.Context, taskID ids.TaskId) ([]model.ToolCallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ToolCallRecord, len(s.toolCalls[taskID]))
	copy(out, s.toolCalls[taskID])
	return out, nil
}
