// Package verify implements the Verification Coordinator (C8): it sequences
// the Completion Verifier, Tool-Call Validator, Proof-of-Work Collector, and
// Behavior Monitor for a single task and produces one Verdict.
package verify

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/store/evidence"
	"github.com/ares-io/ares-core/internal/telemetry"
	"github.com/ares-io/ares-core/internal/verify/behavior"
	"github.com/ares-io/ares-core/internal/verify/completion"
	verifyevidence "github.com/ares-io/ares-core/internal/verify/evidence"
	"github.com/ares-io/ares-core/internal/verify/toolcall"
)

// Config carries the weights, pass thresholds, and soft deadline the
// Verification Coordinator evaluates every task against (spec §4.8),
// sourced from immutable startup configuration.
type Config struct {
	CompletionWeight float64
	ToolUsageWeight  float64
	EvidenceWeight   float64
	BehaviorWeight   float64
	PassOverall      float64
	PassCompletion   float64
	SoftDeadline     time.Duration
}

// Coordinator orchestrates a single task's verification (spec §4.8).
type Coordinator struct {
	schemas   *toolcall.SchemaRegistry
	behavior  *behavior.Monitor
	evidence  evidence.Store
	cfg       Config
	telemetry telemetry.Set

	mu       sync.Mutex
	verdicts map[ids.TaskId]model.Verdict
}

// NewCoordinator constructs a Verification Coordinator sharing the given
// evidence store, tool-schema registry, and behavior monitor with the rest
// of the core. The evidence store is where C5's per-call ValidationStatus is
// persisted back onto each ToolCallRecord.
func NewCoordinator(evidenceStore evidence.Store, schemas *toolcall.SchemaRegistry, monitor *behavior.Monitor, cfg Config, tel telemetry.Set) *Coordinator {
	return &Coordinator{
		schemas:   schemas,
		behavior:  monitor,
		evidence:  evidenceStore,
		cfg:       cfg,
		telemetry: tel,
		verdicts:  make(map[ids.TaskId]model.Verdict),
	}
}

// Input bundles everything the Coordinator needs to verify one task. Callers
// (the Core façade) assemble it from the Evidence Store and the Task/Agent
// records, under the task lock (spec §5).
type Input struct {
	Task        model.Task
	AgentID     ids.AgentId
	Artifacts   []model.Artifact
	ToolCalls   []model.ToolCallRecord
	TaskStarted time.Time
	ErrorRate   float64
}

// Verify runs C4-C7 in parallel and aggregates into a single Verdict.
// Re-entry with the same task ID returns the memoized verdict without
// re-computing (spec §4.8: "idempotent by TaskId").
func (c *Coordinator) Verify(ctx context.Context, in Input) model.Verdict {
	c.mu.Lock()
	if v, ok := c.verdicts[in.Task.ID]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	verdict := c.compute(ctx, in)

	c.mu.Lock()
	if v, ok := c.verdicts[in.Task.ID]; ok {
		c.mu.Unlock()
		return v
	}
	c.verdicts[in.Task.ID] = verdict
	c.mu.Unlock()

	return verdict
}

func (c *Coordinator) compute(ctx context.Context, in Input) model.Verdict {
	ctx, span := c.telemetry.Tracer.Start(ctx, "verify.coordinator.verify")
	defer span.End()

	deadlineCtx, cancel := context.WithTimeout(ctx, c.cfg.SoftDeadline)
	defer cancel()

	var (
		completionResult completion.Result
		toolResult       toolcall.Result
		evidenceResult   verifyevidence.Result
		behaviorResult   behavior.Result
	)

	g, _ := errgroup.WithContext(deadlineCtx)
	g.Go(func() error {
		completionResult = completion.Verify(in.Task.Criteria, in.Artifacts)
		return nil
	})
	g.Go(func() error {
		toolResult = toolcall.Aggregate(c.schemas, in.Task.Criteria, in.ToolCalls)
		c.persistValidation(ctx, in.Task.ID, in.ToolCalls, toolResult.Validated)
		return nil
	})
	g.Go(func() error {
		evidenceResult = verifyevidence.Score(in.Task.Criteria, in.Artifacts)
		return nil
	})
	g.Go(func() error {
		sample := behavior.Sample{
			Duration:  time.Since(in.TaskStarted),
			Retries:   countRetries(in.Artifacts),
			ErrorRate: in.ErrorRate,
		}
		behaviorResult = c.behavior.Observe(in.AgentID, sample)
		return nil
	})

	g.Wait()
	timedOut := deadlineCtx.Err() != nil

	if timedOut {
		c.telemetry.Metrics.IncCounter("verify.timeout", 1)
		return model.Verdict{
			TaskID:     in.Task.ID,
			Outcome:    model.Fail,
			Reasons:    []string{"verification_timeout"},
			ProducedAt: time.Now(),
		}
	}

	overall := c.cfg.CompletionWeight*completionResult.Score +
		c.cfg.ToolUsageWeight*toolResult.Score +
		c.cfg.EvidenceWeight*evidenceResult.Score +
		c.cfg.BehaviorWeight*behaviorResult.Score
	// Round to 4 decimal places so equal inputs give a stable overall (the
	// unrounded weighted sum of four 1.0 scores is 0.9999999999999999).
	overall = math.Round(overall*10000) / 10000

	hasDisallowed := false
	for _, reason := range toolResult.Reasons {
		if hasPrefix(reason, "disallowed_tool:") {
			hasDisallowed = true
			break
		}
	}

	outcome := model.Fail
	if overall >= c.cfg.PassOverall && completionResult.Score >= c.cfg.PassCompletion && !hasDisallowed {
		outcome = model.Pass
	}

	reasons := make([]string, 0, len(completionResult.Reasons)+len(toolResult.Reasons)+len(evidenceResult.Reasons)+len(behaviorResult.Reasons))
	reasons = append(reasons, completionResult.Reasons...)
	reasons = append(reasons, toolResult.Reasons...)
	reasons = append(reasons, evidenceResult.Reasons...)
	reasons = append(reasons, behaviorResult.Reasons...)

	return model.Verdict{
		TaskID:  in.Task.ID,
		Outcome: outcome,
		SubScores: model.SubScores{
			Completion: completionResult.Score,
			ToolUsage:  toolResult.Score,
			Evidence:   evidenceResult.Score,
			Behavior:   behaviorResult.Score,
		},
		Overall:    overall,
		Reasons:    reasons,
		ProducedAt: time.Now(),
	}
}

// persistValidation writes each call's computed ValidationStatus back onto
// its stored ToolCallRecord (spec §3: "validation set exactly once by C5").
// validated is aligned by index with calls, the order Aggregate consumed
// them in.
func (c *Coordinator) persistValidation(ctx context.Context, taskID ids.TaskId, calls []model.ToolCallRecord, validated []model.ValidationStatus) {
	for i, call := range calls {
		if i >= len(validated) {
			break
		}
		if err := c.evidence.UpdateValidation(ctx, taskID, call.ID, validated[i]); err != nil {
			c.telemetry.Log.Error(ctx, "persist tool-call validation", "task_id", taskID, "tool_call_id", call.ID, "err", err)
		}
	}
}

func countRetries(artifacts []model.Artifact) int {
	n := 0
	for _, a := range artifacts {
		if a.Kind == "retry" {
			n++
		}
	}
	return n
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
