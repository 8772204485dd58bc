package model

import "time"

// ArtifactRequirement names a required (or optional) artifact kind and an
// optional predicate the Completion Verifier (C4) applies to candidate
// artifacts of that kind.
type ArtifactRequirement struct {
	Kind      string
	Required  bool
	Predicate func(Artifact) bool
}

// ToolRequirement constrains how many times a tool may be invoked (spec
// §4.5). SchemaID is carried as given; the Tool-Call Validator looks up
// argument schemas by ToolName and does not read SchemaID.
type ToolRequirement struct {
	ToolName       string
	MinInvocations int
	MaxInvocations int // 0 means unbounded
	SchemaID       string
}

// BehavioralBounds records optional caps on task duration and retries. They
// are stored with the criteria; neither the Behavior Monitor (C7) nor the
// Verification Coordinator (C8) reads them.
type BehavioralBounds struct {
	MaxDuration time.Duration // zero means unbounded
	MaxRetries  int           // zero means unbounded
}

// AcceptanceCriteria is the declarative contract a Task must satisfy to pass
// verification (spec §3). It is immutable after task creation.
type AcceptanceCriteria struct {
	Artifacts []ArtifactRequirement
	Tools     []ToolRequirement
	Bounds    BehavioralBounds
}

// RequiredKinds returns the kinds from Artifacts marked Required, preserving
// declaration order.
func (c AcceptanceCriteria) RequiredKinds() []string {
	var kinds []string
	for _, a := range c.Artifacts {
		if a.Required {
			kinds = append(kinds, a.Kind)
		}
	}
	return kinds
}

// RecognizedKinds returns every kind named in Artifacts, required or
// optional, used by the Proof-of-Work Collector (C6) to score "typing".
func (c AcceptanceCriteria) RecognizedKinds() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Artifacts))
	for _, a := range c.Artifacts {
		set[a.Kind] = struct{}{}
	}
	return set
}

// AllowedTools returns the set of tool names the criteria permit, used by
// the Tool-Call Validator (C5) to flag disallowed_tool calls.
func (c AcceptanceCriteria) AllowedTools() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Tools))
	for _, t := range c.Tools {
		set[t.ToolName] = struct{}{}
	}
	return set
}

// Validate checks the criteria are well-formed at task-creation time (spec
// §7 ValidationError: "criteria/schema malformed at creation"). A task is
// never created if this returns an error.
func (c AcceptanceCriteria) Validate() error {
	seenKinds := make(map[string]struct{}, len(c.Artifacts))
	for _, a := range c.Artifacts {
		if a.Kind == "" {
			return errInvalidCriteria("artifact requirement missing kind")
		}
		if _, dup := seenKinds[a.Kind]; dup {
			return errInvalidCriteria("duplicate artifact kind %q", a.Kind)
		}
		seenKinds[a.Kind] = struct{}{}
	}
	seenTools := make(map[string]struct{}, len(c.Tools))
	for _, t := range c.Tools {
		if t.ToolName == "" {
			return errInvalidCriteria("tool requirement missing name")
		}
		if _, dup := seenTools[t.ToolName]; dup {
			return errInvalidCriteria("duplicate tool requirement %q", t.ToolName)
		}
		if t.MaxInvocations > 0 && t.MinInvocations > t.MaxInvocations {
			return errInvalidCriteria("tool %q: min_invocations > max_invocations", t.ToolName)
		}
		seenTools[t.ToolName] = struct{}{}
	}
	return nil
}
