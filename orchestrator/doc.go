// Package orchestrator drives a run through its lifecycle: Received →
// Planning → Dispatching → Awaiting → Merging → {Succeeded,
// PartiallySucceeded, Failed}. Planning turns the task kind plus the agent
// registry into a cooperation plan; dispatching funnels every sub-task
// through the handoff router and the guardrail filter; the resolver executes
// the plan's cooperation pattern; the final outcome carries the full trace.
//
// Submit is non-blocking and returns a RunHandle; callers wait with Await
// (bounded by their context) and read the audit trail with Trace once the
// run reached a terminal state.
package orchestrator
