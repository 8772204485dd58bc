package model

import (
	"fmt"
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

// EventKind discriminates the Event tagged union published on the Event
// Fabric (spec §3/§4.1).
type EventKind string

const (
	TaskStateChanged   EventKind = "task_state_changed"
	VerdictProduced    EventKind = "verdict_produced"
	EnforcementIssued  EventKind = "enforcement_issued"
	AgentStatusChanged EventKind = "agent_status_changed"
	ArtifactRecorded   EventKind = "artifact_recorded"
	ToolCallRecorded   EventKind = "tool_call_recorded"
	SnapshotRestored   EventKind = "snapshot_restored"
)

// Event is the single envelope type published through the Event Fabric.
// Exactly one of the payload fields is populated, matching Kind.
type Event struct {
	Kind      EventKind
	Topic     string
	Timestamp time.Time

	TaskState   *TaskStateChangedPayload
	Verdict     *Verdict
	Enforcement *EnforcementAction
	AgentStatus *AgentStatusChangedPayload
	Artifact    *Artifact
	ToolCall    *ToolCallRecord
	Snapshot    *Snapshot
}

// TaskStateChangedPayload carries a Task's prior and new state.
type TaskStateChangedPayload struct {
	TaskID ids.TaskId
	From   TaskState
	To     TaskState
}

// AgentStatusChangedPayload carries an Agent's prior and new status.
type AgentStatusChangedPayload struct {
	AgentID ids.AgentId
	From    AgentStatus
	To      AgentStatus
}

// TaskTopic is the per-task topic name an Event is published under (spec
// §4.1: "task:<TaskId>").
func TaskTopic(id ids.TaskId) string {
	return fmt.Sprintf("task:%s", id)
}

// AgentTopic is the per-agent topic name (spec §4.1: "agent:<AgentId>").
func AgentTopic(id ids.AgentId) string {
	return fmt.Sprintf("agent:%s", id)
}

// SystemTopic is the catch-all topic for events with no narrower scope.
const SystemTopic = "system"
