package orchestrator

import (
	"context"
	"sync"

	"github.com/hupe1980/parkmesh/core"
)

// State is a lifecycle phase of a run. States are recorded in the trace;
// terminal outcomes are expressed as core.Status on the Result.
type State string

const (
	// StateReceived marks a submitted run before planning.
	StateReceived State = "received"
	// StatePlanning marks capability matching and plan construction.
	StatePlanning State = "planning"
	// StateDispatching marks sub-tasks being issued to agents.
	StateDispatching State = "dispatching"
	// StateAwaiting marks outstanding parallel invocations.
	StateAwaiting State = "awaiting"
	// StateMerging marks result combination and output validation.
	StateMerging State = "merging"
)

// RunHandle identifies one in-flight or completed run. It is returned by
// Submit immediately; the result becomes available once the done channel
// closes.
type RunHandle struct {
	runID  string
	task   core.Task
	run    *core.RunContext
	cancel context.CancelFunc

	done chan struct{}

	mu     sync.Mutex
	result core.Result
}

// RunID returns the unique run identifier.
func (h *RunHandle) RunID() string { return h.runID }

// Task returns the submitted top-level task.
func (h *RunHandle) Task() core.Task { return h.task }

// Done returns a channel closed when the run reaches a terminal state.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

func (h *RunHandle) complete(result core.Result) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()
	close(h.done)
}

func (h *RunHandle) terminal() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
