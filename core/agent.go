package core

import "context"

// Capability is the declarative description of one specialized agent: its
// stable identity, the task kinds it accepts, the external tools it depends
// on and the guardrail policy applied at its boundaries. Capabilities are
// immutable after registration.
type Capability struct {
	// ID is the stable agent identifier used in handoffs, cues and traces.
	ID string
	// Kinds is the closed set of task kinds this agent handles.
	Kinds []TaskKind
	// Tools lists required tool capabilities in invocation order.
	Tools []string
	// GuardrailPolicy names the policy the filter applies to this agent.
	GuardrailPolicy string
	// MaxConcurrency bounds simultaneous invocations; 0 means unbounded.
	MaxConcurrency int
	// Priority breaks debative score ties deterministically; lower wins.
	Priority int
	// Description is a human-readable summary of the agent's purpose.
	Description string
}

// Handles reports whether the capability declares support for the kind.
func (c Capability) Handles(kind TaskKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Cue is a read-only piece of context delivered from one agent to another
// without transferring control. A lost or late cue degrades context quality
// but never aborts execution.
type Cue struct {
	Source string
	Target string
	Data   map[string]any
}

// Invocation carries everything a single agent execution may consume: the
// task, the cues collected for this agent before its start, and the
// preferences read at planning time. CueFunc, when set by the orchestrator,
// lets the agent broadcast early context to downstream agents.
type Invocation struct {
	Context     context.Context
	Task        Task
	Cues        []Cue
	Preferences map[string]any

	// CueFunc is wired by the orchestrator to the run's cue bus. Nil outside
	// an orchestrated run.
	CueFunc func(target string, data map[string]any)
}

// Cue sends fire-and-forget context to a downstream agent. Safe to call with
// no bus attached.
func (inv *Invocation) Cue(target string, data map[string]any) {
	if inv.CueFunc != nil {
		inv.CueFunc(target, data)
	}
}

// Agent is a registered, specialized task-handler. Execute must respect
// context cancellation and return either a structured payload or an error;
// it must run correctly with an empty cue set.
type Agent interface {
	Capability() Capability
	Execute(inv *Invocation) (map[string]any, error)
}
