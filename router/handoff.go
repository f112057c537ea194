package router

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
)

// OrchestratorID is the pseudo-agent that owns tasks before their first
// handoff. The orchestrator hands sub-tasks to agents under this identity.
const OrchestratorID = "orchestrator"

// Options configures the Router.
type Options struct {
	Logger logging.Logger
}

// Router enforces the handoff contract: exclusive ownership transfer guarded
// by capability declarations and per-agent concurrency limits. Limits reject
// immediately (bounded backlog of zero) so the orchestrator can pick an
// alternate agent or fail the branch instead of queueing silently.
type Router struct {
	registry *core.Registry
	logger   logging.Logger

	mu     sync.Mutex
	owners map[string]string // task id -> owning agent id
	slots  map[string]*semaphore.Weighted
}

// New constructs a Router over the immutable agent registry. Semaphores are
// allocated up front for every agent declaring a concurrency limit.
func New(registry *core.Registry, optFns ...func(o *Options)) *Router {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	slots := make(map[string]*semaphore.Weighted)
	for _, id := range registry.IDs() {
		if agent, ok := registry.Get(id); ok {
			if max := agent.Capability().MaxConcurrency; max > 0 {
				slots[id] = semaphore.NewWeighted(int64(max))
			}
		}
	}
	return &Router{registry: registry, logger: opts.Logger, owners: make(map[string]string), slots: slots}
}

// Handoff atomically moves ownership of task from one agent to another.
// Preconditions: the target must declare support for the task kind and the
// source must currently own the task (or the task is unowned and the source
// is the orchestrator). A target at its concurrency limit rejects the
// handoff immediately. The outcome is appended to the run trace.
func (r *Router) Handoff(run *core.RunContext, from, to string, task core.Task) error {
	target, ok := r.registry.Get(to)
	if !ok {
		return r.reject(run, from, to, task, "unknown agent")
	}
	if !target.Capability().Handles(task.Kind) {
		return r.reject(run, from, to, task, "task kind "+string(task.Kind)+" not supported")
	}

	r.mu.Lock()
	owner, owned := r.owners[task.ID]
	if owned && owner != from {
		r.mu.Unlock()
		return r.reject(run, from, to, task, "task owned by "+owner)
	}
	if !owned && from != OrchestratorID {
		r.mu.Unlock()
		return r.reject(run, from, to, task, "source does not own task")
	}
	if sem, limited := r.slots[to]; limited {
		if !sem.TryAcquire(1) {
			r.mu.Unlock()
			return r.reject(run, from, to, task, "concurrency limit reached")
		}
	}
	if owned {
		// ownership moves between agents: free the source's slot
		if sem, limited := r.slots[from]; limited {
			sem.Release(1)
		}
	}
	r.owners[task.ID] = to
	r.mu.Unlock()

	run.Append(core.EventHandoff, from, to, task.ID, "accepted")
	r.logger.Debug("handoff accepted", "from", from, "to", to, "task_id", task.ID)
	return nil
}

// Release returns the agent's concurrency slot and clears task ownership.
// Called by the orchestrator when an invocation finishes, regardless of
// outcome.
func (r *Router) Release(agentID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[taskID]
	if !ok || owner != agentID {
		return
	}
	delete(r.owners, taskID)
	if sem, limited := r.slots[agentID]; limited {
		sem.Release(1)
	}
}

// Owner reports the agent currently holding control of a task.
func (r *Router) Owner(taskID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[taskID]
	return owner, ok
}

func (r *Router) reject(run *core.RunContext, from, to string, task core.Task, reason string) error {
	run.Append(core.EventHandoff, from, to, task.ID, "rejected: "+reason)
	r.logger.Warn("handoff rejected", "from", from, "to", to, "task_id", task.ID, "reason", reason)
	return core.NewFailure(core.FailHandoffRejected, "handoff %s -> %s: %s", from, to, reason)
}
