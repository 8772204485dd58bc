// Package toolcall implements the Tool-Call Validator (C5): per-call
// structural validation against registered tool schemas and per-task
// aggregation against a task's allowed tool set.
package toolcall

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ares-io/ares-core/internal/model"
)

type (
	// SchemaRegistry holds per-tool argument schemas registered at startup
	// (spec §9: "replace [dynamic dispatch] with an explicit registry").
	SchemaRegistry struct {
		mu      sync.RWMutex
		schemas map[string]*jsonschema.Schema
	}

	// Result is the per-task aggregation produced by Aggregate (spec §4.5).
	Result struct {
		Score   float64
		Reasons []string
		// Validated holds each call's computed ValidationStatus, in input
		// order, so callers can persist it back onto the ToolCallRecord.
		Validated []model.ValidationStatus
	}
)

// NewSchemaRegistry constructs an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON and associates it with toolName. Registration
// happens at startup, before any task referencing toolName is verified.
func (r *SchemaRegistry) Register(toolName string, schemaJSON []byte) error {
	var doc any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return fmt.Errorf("unmarshal schema for tool %q: %w", toolName, err)
	}

	c := jsonschema.NewCompiler()
	resourceURL := fmt.Sprintf("tool://%s", toolName)
	if err := c.AddResource(resourceURL, doc); err != nil {
		return fmt.Errorf("add schema resource for tool %q: %w", toolName, err)
	}
	schema, err := c.Compile(resourceURL)
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", toolName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[toolName] = schema
	return nil
}

func (r *SchemaRegistry) get(toolName string) (*jsonschema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[toolName]
	return schema, ok
}

// validateOne checks a single call: schema conformance, presence of a result
// or error, and that finished_at is not before started_at (spec §4.5).
func validateOne(registry *SchemaRegistry, call model.ToolCallRecord) model.ValidationStatus {
	if call.Result == nil && call.Err == nil {
		return model.ValidationStatus{State: model.Invalid, Reason: "no_result_or_error"}
	}
	if call.FinishedAt.Before(call.StartedAt) {
		return model.ValidationStatus{State: model.Invalid, Reason: "finished_before_started"}
	}
	if schema, ok := registry.get(call.ToolName); ok {
		args, err := toJSONDoc(call.Arguments)
		if err != nil {
			return model.ValidationStatus{State: model.Invalid, Reason: "malformed_arguments"}
		}
		if err := schema.Validate(args); err != nil {
			return model.ValidationStatus{State: model.Invalid, Reason: "schema_violation"}
		}
	}
	return model.ValidationStatus{State: model.Valid}
}

func toJSONDoc(v any) (any, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		return v, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Aggregate validates every call and computes the task's tool_usage score
// per the spec §4.5 formula. The allowed set and per-tool invocation bounds
// come from criteria.Tools.
func Aggregate(registry *SchemaRegistry, criteria model.AcceptanceCriteria, calls []model.ToolCallRecord) Result {
	allowed := criteria.AllowedTools()
	maxInvocations := make(map[string]int, len(criteria.Tools))
	for _, req := range criteria.Tools {
		if req.MaxInvocations > 0 {
			maxInvocations[req.ToolName] = req.MaxInvocations
		}
	}

	counts := make(map[string]int, len(criteria.Tools))
	seenSoFar := make(map[string]int, len(criteria.Tools))
	validated := make([]model.ValidationStatus, len(calls))
	var reasons []string
	validAndExpected := 0
	overInvoked := make(map[string]struct{})

	for i, call := range calls {
		counts[call.ToolName]++
		status := validateOne(registry, call)

		_, isAllowed := allowed[call.ToolName]
		if !isAllowed {
			status = model.ValidationStatus{State: model.Invalid, Reason: "disallowed_tool"}
			reasons = append(reasons, fmt.Sprintf("disallowed_tool:%s", call.ToolName))
		} else {
			seenSoFar[call.ToolName]++
			if max, ok := maxInvocations[call.ToolName]; ok && seenSoFar[call.ToolName] > max {
				status = model.ValidationStatus{State: model.Invalid, Reason: "over_invocation"}
				overInvoked[call.ToolName] = struct{}{}
			}
		}
		validated[i] = status
		if status.State == model.Valid && isAllowed {
			validAndExpected++
		}
	}
	for name := range overInvoked {
		reasons = append(reasons, fmt.Sprintf("over_invocation:%s", name))
	}

	missingRequired := 0
	for _, req := range criteria.Tools {
		actual := counts[req.ToolName]
		if req.MinInvocations > actual {
			missingRequired++
			reasons = append(reasons, fmt.Sprintf("missing_tool_invocation:%s", req.ToolName))
		}
	}

	denominator := len(calls) + missingRequired
	if denominator < 1 {
		denominator = 1
	}
	score := round4(float64(validAndExpected) / float64(denominator))

	return Result{Score: score, Reasons: reasons, Validated: validated}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
