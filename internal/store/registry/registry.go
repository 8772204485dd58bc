// Package registry holds the Agent and Task tables and the per-task /
// per-agent locks that serialize mutations to them (spec §5).
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/aerrors"
	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
)

type (
	// Registry is the in-process Agent/Task table, along with the locks the
	// Core façade acquires before mutating a Task or Agent. Lock ordering is
	// task-lock before agent-lock, never the reverse (spec §5).
	Registry struct {
		mu          sync.RWMutex
		agents      map[ids.AgentId]*model.Agent
		agentByName map[string]ids.AgentId
		tasks       map[ids.TaskId]*model.Task
		verdicts    map[ids.TaskId]model.Verdict

		taskLocks  map[ids.TaskId]*sync.Mutex
		agentLocks map[ids.AgentId]*sync.Mutex
	}
)

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		agents:      make(map[ids.AgentId]*model.Agent),
		agentByName: make(map[string]ids.AgentId),
		tasks:       make(map[ids.TaskId]*model.Task),
		verdicts:    make(map[ids.TaskId]model.Verdict),
		taskLocks:   make(map[ids.TaskId]*sync.Mutex),
		agentLocks:  make(map[ids.AgentId]*sync.Mutex),
	}
}

// TaskLock returns the mutex serializing mutations to taskID, creating it on
// first use.
func (r *Registry) TaskLock(taskID ids.TaskId) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.taskLocks[taskID]
	if !ok {
		l = &sync.Mutex{}
		r.taskLocks[taskID] = l
	}
	return l
}

// AgentLock returns the mutex serializing mutations to agentID, creating it
// on first use.
func (r *Registry) AgentLock(agentID ids.AgentId) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.agentLocks[agentID]
	if !ok {
		l = &sync.Mutex{}
		r.agentLocks[agentID] = l
	}
	return l
}

// RegisterAgent creates a new Agent with the given name and capabilities.
// Fails with aerrors.Duplicate if the name is already registered.
func (r *Registry) RegisterAgent(_ context.Context, name string, capabilities []string) (model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agentByName[name]; ok {
		return model.Agent{}, aerrors.New(aerrors.Duplicate, "agent name %q already registered", name)
	}

	capSet := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		capSet[c] = struct{}{}
	}
	agent := model.Agent{
		ID:           ids.NewAgentId(),
		Name:         name,
		Capabilities: capSet,
		Status:       model.AgentActive,
		CreatedAt:    time.Now(),
	}
	r.agents[agent.ID] = &agent
	r.agentByName[name] = agent.ID
	return agent, nil
}

// GetAgent returns a copy of agentID's current record.
func (r *Registry) GetAgent(_ context.Context, agentID ids.AgentId) (model.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	if !ok {
		return model.Agent{}, aerrors.New(aerrors.NotFound, "unknown agent %s", agentID)
	}
	return *a, nil
}

// MutateAgent applies fn to agentID's stored record under the per-agent
// lock, persisting the result. Callers must hold AgentLock(agentID) before
// calling (spec §5 per-agent serialization).
func (r *Registry) MutateAgent(agentID ids.AgentId, fn func(*model.Agent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return aerrors.New(aerrors.NotFound, "unknown agent %s", agentID)
	}
	fn(a)
	return nil
}

// CreateTask creates a new Pending Task for agentID.
func (r *Registry) CreateTask(_ context.Context, agentID ids.AgentId, description string, criteria model.AcceptanceCriteria) (model.Task, error) {
	if err := criteria.Validate(); err != nil {
		return model.Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; !ok {
		return model.Task{}, aerrors.New(aerrors.NotFound, "unknown agent %s", agentID)
	}

	now := time.Now()
	task := model.Task{
		ID:          ids.NewTaskId(),
		AgentID:     agentID,
		Description: description,
		Criteria:    criteria,
		State:       model.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.tasks[task.ID] = &task
	return task, nil
}

// GetTask returns a copy of taskID's current record.
func (r *Registry) GetTask(_ context.Context, taskID ids.TaskId) (model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return model.Task{}, aerrors.New(aerrors.NotFound, "unknown task %s", taskID)
	}
	return *t, nil
}

// Transition moves taskID to next if the edge is legal, returning the
// updated Task. Callers must hold TaskLock(taskID) (spec §5 per-task
// serialization).
func (r *Registry) Transition(_ context.Context, taskID ids.TaskId, next model.TaskState) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return model.Task{}, aerrors.New(aerrors.NotFound, "unknown task %s", taskID)
	}
	if !t.CanTransitionTo(next) {
		return model.Task{}, aerrors.New(aerrors.IllegalState, "task %s cannot move from %s to %s", taskID, t.State, next)
	}
	t.State = next
	t.UpdatedAt = time.Now()
	return *t, nil
}

// ListInFlight returns every Task not yet in a terminal state, in no
// particular order. Used by Shutdown to find tasks that still need a
// rollback decision.
func (r *Registry) ListInFlight() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Task, 0)
	for _, t := range r.tasks {
		if !t.State.Terminal() {
			out = append(out, *t)
		}
	}
	return out
}

// PutVerdict stores the verdict for taskID. A Task in Verified or Failed
// must have exactly one Verdict (spec §3 invariant); PutVerdict is called
// once, before the corresponding Transition.
func (r *Registry) PutVerdict(taskID ids.TaskId, verdict model.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[taskID] = verdict
}

// GetVerdict returns the Verdict recorded for taskID, if any.
func (r *Registry) GetVerdict(_ context.Context, taskID ids.TaskId) (model.Verdict, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verdicts[taskID]
	if !ok {
		return model.Verdict{}, aerrors.New(aerrors.NotFound, "no verdict for task %s", taskID)
	}
	return v, nil
}
