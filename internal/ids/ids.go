// Package ids defines the opaque identifier types used throughout ARES.
// Every identifier is a 128-bit random value in canonical textual form
// (spec §3), backed by google/uuid exactly as the teacher's runtime/agent
// and runtime/agent/tools packages back their Ident types.
package ids

import "github.com/google/uuid"

// AgentId opaquely identifies an Agent, unique within a process lifetime.
type AgentId string

// TaskId opaquely identifies a Task.
type TaskId string

// ToolCallId opaquely identifies a ToolCallRecord.
type ToolCallId string

// ArtifactId opaquely identifies an Artifact.
type ArtifactId string

// NewAgentId generates a fresh random AgentId.
func NewAgentId() AgentId { return AgentId(uuid.NewString()) }

// NewTaskId generates a fresh random TaskId.
func NewTaskId() TaskId { return TaskId(uuid.NewString()) }

// NewToolCallId generates a fresh random ToolCallId.
func NewToolCallId() ToolCallId { return ToolCallId(uuid.NewString()) }

// NewArtifactId generates a fresh random ArtifactId.
func NewArtifactId() ArtifactId { return ArtifactId(uuid.NewString()) }

func (id AgentId) String() string    { return string(id) }
func (id TaskId) String() string     { return string(id) }
func (id ToolCallId) String() string { return string(id) }
func (id ArtifactId) String() string { return string(id) }
