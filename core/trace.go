package core

import "time"

// EventKind categorizes a trace entry.
type EventKind string

const (
	// EventHandoff records a control transfer between agents.
	EventHandoff EventKind = "handoff"
	// EventCue records an asynchronous context delivery.
	EventCue EventKind = "cue"
	// EventCueDropped records a cue discarded because its target completed
	// or its buffer was full.
	EventCueDropped EventKind = "cue_dropped"
	// EventGuardrail records an allowed guardrail verdict (including
	// redactions and truncations).
	EventGuardrail EventKind = "guardrail"
	// EventGuardrailReject records a guardrail verdict that blocked a payload.
	EventGuardrailReject EventKind = "guardrail_reject"
	// EventRetry records a retried handoff, tool call or output validation.
	EventRetry EventKind = "retry"
	// EventDispatch records a sub-task being issued to an agent.
	EventDispatch EventKind = "dispatch"
	// EventState records an orchestrator state transition.
	EventState EventKind = "state"
	// EventCandidate records a debative candidate result for auditability.
	EventCandidate EventKind = "candidate"
)

// TraceEntry is one append-only audit record of a run. Entries are totally
// ordered within a run by Seq; timestamps are informational only.
type TraceEntry struct {
	Seq    int64     `json:"seq"`
	Time   time.Time `json:"time"`
	Kind   EventKind `json:"kind"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	TaskID string    `json:"task_id,omitempty"`
	Note   string    `json:"note,omitempty"`
}
