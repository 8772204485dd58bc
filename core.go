// Package ares is the root of the ARES core: a top-level Core struct owning
// every store and component, created at startup and torn down on Shutdown
// (spec §9 — "encapsulate in a top-level Core struct... No process-wide
// globals").
package ares

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/aerrors"
	"github.com/ares-io/ares-core/internal/config"
	"github.com/ares-io/ares-core/internal/enforcement"
	"github.com/ares-io/ares-core/internal/eventbus"
	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/reliability"
	"github.com/ares-io/ares-core/internal/rollback"
	"github.com/ares-io/ares-core/internal/store/evidence"
	"github.com/ares-io/ares-core/internal/store/registry"
	"github.com/ares-io/ares-core/internal/store/snapshot"
	"github.com/ares-io/ares-core/internal/telemetry"
	"github.com/ares-io/ares-core/internal/verify"
	"github.com/ares-io/ares-core/internal/verify/behavior"
	"github.com/ares-io/ares-core/internal/verify/toolcall"
)

// Core wires the Event Fabric, Evidence Store, Snapshot Store, Verification
// Coordinator, Rollback Coordinator, Reliability Scorer, and Enforcement
// Engine into the single object a transport embeds (spec §6).
type Core struct {
	cfg       config.Config
	telemetry telemetry.Set

	registry    *registry.Registry
	bus         eventbus.Bus
	evidence    evidence.Store
	snapshots   snapshot.Store
	schemas     *toolcall.SchemaRegistry
	monitor     *behavior.Monitor
	coordinator *verify.Coordinator
	roller      *rollback.Coordinator
	scorer      *reliability.Scorer
	enforcer    *enforcement.Engine

	mu        sync.Mutex
	draining  bool
	taskStart map[ids.TaskId]time.Time
}

// New constructs a Core ready to accept submissions. tel may be
// telemetry.NoopSet() when no observability backend is wired.
func New(cfg config.Config, tel telemetry.Set) *Core {
	schemas := toolcall.NewSchemaRegistry()
	monitor := behavior.NewMonitor(cfg.Behavior.WindowSize, cfg.Behavior.MinSampleCount)
	snapshots := snapshot.NewStore(cfg.RestoreDeadline)
	evidenceStore := evidence.NewMemStore()

	return &Core{
		cfg:       cfg,
		telemetry: tel,
		registry:  registry.New(),
		bus:       eventbus.NewBus(tel, cfg.EventBus.DefaultQueueCapacity),
		evidence:  evidenceStore,
		snapshots: snapshots,
		schemas:   schemas,
		monitor:   monitor,
		coordinator: verify.NewCoordinator(evidenceStore, schemas, monitor, verify.Config{
			CompletionWeight: cfg.Verification.CompletionWeight,
			ToolUsageWeight:  cfg.Verification.ToolUsageWeight,
			EvidenceWeight:   cfg.Verification.EvidenceWeight,
			BehaviorWeight:   cfg.Verification.BehaviorWeight,
			PassOverall:      cfg.Verification.PassOverall,
			PassCompletion:   cfg.Verification.PassCompletion,
			SoftDeadline:     cfg.Verification.SoftDeadline,
		}, tel),
		roller: rollback.NewCoordinator(snapshots, tel),
		scorer: reliability.NewScorer(reliability.Config{
			Alpha:              cfg.Reliability.Alpha,
			InitialScore:       cfg.Reliability.InitialScore,
			GoodScoreMin:       cfg.Reliability.GoodScoreMin,
			WatchScoreMin:      cfg.Reliability.WatchScoreMin,
			ProbationScoreMin:  cfg.Reliability.ProbationScoreMin,
			QuarantineRecovery: cfg.Reliability.QuarantineRecovery,
			QuarantineStreak:   cfg.Reliability.QuarantineStreak,
			RingBufferSize:     cfg.Reliability.RingBufferSize,
		}),
		enforcer: enforcement.NewEngine(enforcement.Config{
			ThrottleRate:     cfg.Enforcement.ThrottleRate,
			ThrottleDuration: cfg.Enforcement.ThrottleDuration,
			SuspendDuration:  cfg.Enforcement.SuspendDuration,
		}),
		taskStart: make(map[ids.TaskId]time.Time),
	}
}

// RegisterRestoreHandler registers handler for scope. Startup only: call
// before any task captures a snapshot under scope (spec §6).
func (c *Core) RegisterRestoreHandler(scope string, handler model.RestoreHandler) {
	c.snapshots.RegisterHandler(scope, handler)
}

// RegisterToolSchema registers the JSON schema tool arguments must satisfy
// for toolName. Startup only.
func (c *Core) RegisterToolSchema(toolName string, schemaJSON []byte) error {
	return c.schemas.Register(toolName, schemaJSON)
}

// RegisterAgent implements the Submission API (spec §6).
func (c *Core) RegisterAgent(ctx context.Context, name string, capabilities []string) (ids.AgentId, error) {
	if err := c.rejectIfDraining(); err != nil {
		return "", err
	}
	agent, err := c.registry.RegisterAgent(ctx, name, capabilities)
	if err != nil {
		return "", err
	}
	c.scorer.Register(agent.ID, c.cfg.Reliability.InitialScore)
	c.publish(ctx, model.SystemTopic, model.Event{
		Kind: model.AgentStatusChanged,
		AgentStatus: &model.AgentStatusChangedPayload{AgentID: agent.ID, From: model.AgentActive, To: model.AgentActive},
	})
	return agent.ID, nil
}

// CreateTask implements the Submission API.
func (c *Core) CreateTask(ctx context.Context, agentID ids.AgentId, description string, criteria model.AcceptanceCriteria) (ids.TaskId, error) {
	if err := c.rejectIfDraining(); err != nil {
		return "", err
	}
	task, err := c.registry.CreateTask(ctx, agentID, description, criteria)
	if err != nil {
		return "", err
	}
	c.publishTaskEvent(ctx, task.ID, model.TaskPending, model.TaskPending)
	return task.ID, nil
}

// RecordToolCall implements the Submission API. Idempotent by id.
func (c *Core) RecordToolCall(ctx context.Context, taskID ids.TaskId, record model.ToolCallRecord) error {
	if err := c.rejectIfDraining(); err != nil {
		return err
	}
	lock := c.registry.TaskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.ensureInProgress(ctx, taskID); err != nil {
		return err
	}
	if err := c.evidence.AppendToolCall(ctx, taskID, record); err != nil {
		return err
	}
	c.publish(ctx, model.TaskTopic(taskID), model.Event{Kind: model.ToolCallRecorded, ToolCall: &record})
	return nil
}

// AppendArtifact implements the Submission API. Idempotent by id.
func (c *Core) AppendArtifact(ctx context.Context, taskID ids.TaskId, artifact model.Artifact) error {
	if err := c.rejectIfDraining(); err != nil {
		return err
	}
	lock := c.registry.TaskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.ensureInProgress(ctx, taskID); err != nil {
		return err
	}
	if err := c.evidence.AppendArtifact(ctx, taskID, artifact); err != nil {
		return err
	}
	c.publish(ctx, model.TaskTopic(taskID), model.Event{Kind: model.ArtifactRecorded, Artifact: &artifact})
	return nil
}

// ensureInProgress moves a Pending task to InProgress on first activity
// (spec §6: "state Pending → InProgress on first activity"). Caller must
// hold the task lock.
func (c *Core) ensureInProgress(ctx context.Context, taskID ids.TaskId) error {
	task, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.State == model.TaskPending {
		if _, err := c.registry.Transition(ctx, taskID, model.TaskInProgress); err != nil {
			return err
		}
		c.mu.Lock()
		c.taskStart[taskID] = time.Now()
		c.mu.Unlock()
		c.publishTaskEvent(ctx, taskID, model.TaskPending, model.TaskInProgress)
		return nil
	}
	if task.State != model.TaskInProgress {
		return aerrors.New(aerrors.IllegalState, "task %s is not accepting evidence in state %s", taskID, task.State)
	}
	return nil
}

// CaptureSnapshot implements the Submission API. At most once per task.
func (c *Core) CaptureSnapshot(ctx context.Context, taskID ids.TaskId, scope string, opaqueState []byte) error {
	if err := c.rejectIfDraining(); err != nil {
		return err
	}
	lock := c.registry.TaskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	return c.snapshots.Capture(ctx, taskID, scope, opaqueState, fmt.Sprintf("%s:%s", scope, taskID))
}

// CompleteTask implements the Submission API: the task enters
// AwaitingVerification and verification runs synchronously under the task
// lock (spec §4.8, §5).
func (c *Core) CompleteTask(ctx context.Context, taskID ids.TaskId) (model.Verdict, error) {
	if err := c.rejectIfDraining(); err != nil {
		return model.Verdict{}, err
	}
	lock := c.registry.TaskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	task, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return model.Verdict{}, err
	}
	if task.State.Terminal() {
		// Re-entry: verification already ran for this task (spec §4.8
		// "idempotent by TaskId"); return the memoized verdict.
		return c.registry.GetVerdict(ctx, taskID)
	}
	if task.State != model.TaskAwaitingVerification {
		if _, err := c.registry.Transition(ctx, taskID, model.TaskAwaitingVerification); err != nil {
			return model.Verdict{}, err
		}
		c.publishTaskEvent(ctx, taskID, task.State, model.TaskAwaitingVerification)
		task.State = model.TaskAwaitingVerification
	}

	artifacts, err := c.evidence.ListArtifacts(ctx, taskID)
	if err != nil {
		return model.Verdict{}, err
	}
	toolCalls, err := c.evidence.ListToolCalls(ctx, taskID)
	if err != nil {
		return model.Verdict{}, err
	}

	c.mu.Lock()
	started, ok := c.taskStart[taskID]
	c.mu.Unlock()
	if !ok {
		started = task.CreatedAt
	}

	verdict := c.coordinator.Verify(ctx, verify.Input{
		Task:        task,
		AgentID:     task.AgentID,
		Artifacts:   artifacts,
		ToolCalls:   toolCalls,
		TaskStarted: started,
		ErrorRate:   toolErrorRate(toolCalls),
	})
	c.registry.PutVerdict(taskID, verdict)

	nextState := model.TaskVerified
	if verdict.Outcome == model.Fail {
		nextState = model.TaskFailed
	}
	if _, err := c.registry.Transition(ctx, taskID, nextState); err != nil {
		return model.Verdict{}, err
	}
	c.publishTaskEvent(ctx, taskID, model.TaskAwaitingVerification, nextState)
	c.publish(ctx, model.TaskTopic(taskID), model.Event{Kind: model.VerdictProduced, Verdict: &verdict})

	// spec §2 data flow: pass -> Scorer -> Enforcement -> events; fail ->
	// Rollback -> Scorer -> Enforcement -> events.
	if verdict.Outcome == model.Fail {
		c.runRollback(ctx, taskID)
	}
	c.applyVerdict(ctx, task.AgentID, verdict)

	return verdict, nil
}

// CancelTask implements the Submission API: rollback without a verdict.
func (c *Core) CancelTask(ctx context.Context, taskID ids.TaskId, reason string) error {
	lock := c.registry.TaskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	task, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.State.Terminal() {
		return nil
	}
	c.telemetry.Log.Info(ctx, "task cancelled", "task_id", taskID, "reason", reason)
	c.runRollback(ctx, taskID)
	return nil
}

// runRollback drives the Rollback Coordinator and the task's terminal
// transition to RolledBack. Caller must hold the task lock.
func (c *Core) runRollback(ctx context.Context, taskID ids.TaskId) {
	outcome := c.roller.Rollback(ctx, taskID)
	if outcome.HadSnapshot {
		c.publish(ctx, model.TaskTopic(taskID), model.Event{
			Kind: model.SnapshotRestored,
			Snapshot: &model.Snapshot{TaskID: taskID, RestoreRecord: &model.RestoreRecord{
				Outcome: restoreOutcome(outcome.Success), Reason: outcome.Reason, AttemptAt: outcome.RestoreAt,
			}},
		})
	}

	task, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return
	}
	if _, err := c.registry.Transition(ctx, taskID, model.TaskRolledBack); err != nil {
		return
	}
	c.publishTaskEvent(ctx, taskID, task.State, model.TaskRolledBack)
}

func restoreOutcome(success bool) model.RestoreOutcome {
	if success {
		return model.Restored
	}
	return model.RestoreFailedOutcome
}

// applyVerdict feeds a verdict through the Reliability Scorer and
// Enforcement Engine, under the agent lock (spec §5: task-lock acquired
// first by the caller, agent-lock acquired here).
func (c *Core) applyVerdict(ctx context.Context, agentID ids.AgentId, verdict model.Verdict) {
	lock := c.registry.AgentLock(agentID)
	lock.Lock()
	defer lock.Unlock()

	transition := c.scorer.RecordVerdict(agentID, verdict.Outcome, verdict.ProducedAt)
	state, _ := c.scorer.Get(agentID)
	c.registry.MutateAgent(agentID, func(a *model.Agent) {
		a.Reliability = state
	})

	action, issued := c.enforcer.Evaluate(transition, verdict.ProducedAt)
	if !issued {
		return
	}

	newStatus := statusFor(action.Kind)
	var fromStatus model.AgentStatus
	c.registry.MutateAgent(agentID, func(a *model.Agent) {
		fromStatus = a.Status
		a.Status = newStatus
		a.StatusExpiresAt = action.ExpiresAt
	})

	c.publish(ctx, model.AgentTopic(agentID), model.Event{Kind: model.EnforcementIssued, Enforcement: &action})
	if fromStatus != newStatus {
		c.publish(ctx, model.AgentTopic(agentID), model.Event{
			Kind:        model.AgentStatusChanged,
			AgentStatus: &model.AgentStatusChangedPayload{AgentID: agentID, From: fromStatus, To: newStatus},
		})
	}
}

func statusFor(kind model.EnforcementKind) model.AgentStatus {
	switch kind {
	case model.Suspend:
		return model.AgentSuspended
	case model.Throttle:
		return model.AgentThrottled
	default:
		return model.AgentActive
	}
}

func toolErrorRate(calls []model.ToolCallRecord) float64 {
	if len(calls) == 0 {
		return 0
	}
	errs := 0
	for _, c := range calls {
		if c.Err != nil {
			errs++
		}
	}
	return float64(errs) / float64(len(calls))
}

// GetTask, GetVerdict, GetAgent, GetReliability, ListEnforcement implement
// the Query API (spec §6).

func (c *Core) GetTask(ctx context.Context, taskID ids.TaskId) (model.Task, error) {
	return c.registry.GetTask(ctx, taskID)
}

func (c *Core) GetVerdict(ctx context.Context, taskID ids.TaskId) (model.Verdict, error) {
	return c.registry.GetVerdict(ctx, taskID)
}

func (c *Core) GetAgent(ctx context.Context, agentID ids.AgentId) (model.Agent, error) {
	agent, err := c.registry.GetAgent(ctx, agentID)
	if err != nil {
		return model.Agent{}, err
	}
	agent.Status = agent.EffectiveStatus(time.Now())
	return agent, nil
}

func (c *Core) GetReliability(agentID ids.AgentId) (model.ReliabilityState, error) {
	state, ok := c.scorer.Get(agentID)
	if !ok {
		return model.ReliabilityState{}, aerrors.New(aerrors.NotFound, "unknown agent %s", agentID)
	}
	return state, nil
}

func (c *Core) ListEnforcement(agentID ids.AgentId, since time.Time) []model.EnforcementAction {
	return c.enforcer.ListSince(agentID, since)
}

// Subscribe implements the Subscription API.
func (c *Core) Subscribe(pattern string, capacity int) eventbus.Subscription {
	return c.bus.Subscribe(pattern, capacity)
}

// Shutdown stops accepting new tasks, waits up to gracePeriod for in-flight
// verifications to reach a terminal state, then force-rolls-back whatever
// remains with reason shutdown and closes the event fabric (spec §6).
func (c *Core) Shutdown(ctx context.Context, gracePeriod time.Duration) {
	c.mu.Lock()
	c.draining = true
	c.mu.Unlock()

	deadline := time.Now().Add(gracePeriod)
	for gracePeriod > 0 && time.Now().Before(deadline) {
		if len(c.registry.ListInFlight()) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, task := range c.registry.ListInFlight() {
		func() {
			lock := c.registry.TaskLock(task.ID)
			lock.Lock()
			defer lock.Unlock()

			t, err := c.registry.GetTask(ctx, task.ID)
			if err != nil || t.State.Terminal() {
				return
			}
			c.telemetry.Log.Info(ctx, "rolling back in-flight task on shutdown", "task_id", task.ID)
			c.runRollback(ctx, task.ID)
		}()
	}

	c.bus.Close()
}

func (c *Core) rejectIfDraining() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining {
		return aerrors.New(aerrors.Shutdown, "core is shutting down")
	}
	return nil
}

func (c *Core) publishTaskEvent(ctx context.Context, taskID ids.TaskId, from, to model.TaskState) {
	c.publish(ctx, model.TaskTopic(taskID), model.Event{
		Kind:      model.TaskStateChanged,
		TaskState: &model.TaskStateChangedPayload{TaskID: taskID, From: from, To: to},
	})
}

func (c *Core) publish(ctx context.Context, topic string, event model.Event) {
	event.Topic = topic
	event.Timestamp = time.Now()
	c.bus.Publish(ctx, event)
}
