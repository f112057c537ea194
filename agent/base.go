package agent

import (
	"time"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
)

// Agent identifiers. Stable across runs; used in handoffs, cues, traces and
// guardrail policy lookups.
const (
	InteractionAgentID     = "interaction"
	SearchAgentID          = "informative_search"
	GuidanceAgentID        = "on_route_guidance"
	AccessAgentID          = "access"
	MicroRoutingAgentID    = "micro_routing"
	OnSpotAgentID          = "on_spot"
	DepartureAgentID       = "departure"
	DefaultGuardrailPolicy = "default"
)

// Options configure a specialized agent. Zero values fall back to sane
// defaults during construction.
type Options struct {
	// Logger receives per-invocation debug output. Defaults to NoOpLogger.
	Logger logging.Logger

	// ToolTimeout bounds each single tool invocation.
	ToolTimeout time.Duration

	// MaxConcurrency bounds simultaneous invocations of this agent; 0 means
	// unbounded.
	MaxConcurrency int

	// GuardrailPolicy names the guardrail policy for this agent's
	// boundaries.
	GuardrailPolicy string

	// Priority breaks debative ties; lower wins.
	Priority int
}

// Base bundles the dependencies every specialized agent shares: its declared
// capability, the opaque reasoning solver and the tool invoker. Embed it and
// supply Execute to satisfy core.Agent.
type Base struct {
	cap         core.Capability
	solver      core.Solver
	tools       core.ToolInvoker
	logger      logging.Logger
	toolTimeout time.Duration
}

func newBase(cap core.Capability, solver core.Solver, tools core.ToolInvoker, opts Options) Base {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	timeout := opts.ToolTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if opts.GuardrailPolicy != "" {
		cap.GuardrailPolicy = opts.GuardrailPolicy
	}

	cap.MaxConcurrency = opts.MaxConcurrency
	cap.Priority = opts.Priority

	return Base{
		cap:         cap,
		solver:      solver,
		tools:       tools,
		logger:      logger,
		toolTimeout: timeout,
	}
}

// Capability implements core.Agent.
func (b *Base) Capability() core.Capability { return b.cap }

// invokeTool calls a declared tool with the agent's configured timeout.
func (b *Base) invokeTool(inv *core.Invocation, toolID string, req map[string]any) (map[string]any, error) {
	return b.tools.Invoke(inv.Context, toolID, req, b.toolTimeout)
}

// solve runs the opaque reasoning step. Agents degrade gracefully when no
// solver is configured: they return nil and rely on their deterministic
// tool-driven path.
func (b *Base) solve(inv *core.Invocation) map[string]any {
	if b.solver == nil {
		return nil
	}

	out, err := b.solver.Solve(inv.Context, b.cap.ID, inv.Task, inv.Cues)
	if err != nil {
		b.logger.Warn("reasoning step failed, continuing with tool output",
			"agent_id", b.cap.ID, "task_id", inv.Task.ID, "error", err)
		return nil
	}

	return out
}
