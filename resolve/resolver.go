package resolve

import (
	"context"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
)

// ItemsKey is the payload key under which augmentative branches expose their
// list of result items and under which the merged concatenation is returned.
const ItemsKey = "items"

// Invoker executes one agent against one sub-task. The orchestrator supplies
// a closure binding guardrails, cue collection and ownership release so the
// resolver stays free of routing concerns.
type Invoker func(ctx context.Context, agentID string, task core.Task) (map[string]any, error)

// MergeFunc builds the input payload of an integrative stage from the
// structured outputs of its predecessor stages, keyed by stage name.
type MergeFunc func(upstream map[string]map[string]any) (map[string]any, error)

// ScoreRule compares two debative candidate payloads: negative when a ranks
// ahead of b, positive when b ranks ahead, zero on a tie.
type ScoreRule func(a, b map[string]any) int

// KeyFunc derives the deduplication key of an augmentative result item.
type KeyFunc func(item map[string]any) string

// Outcome is the resolver's verdict for one cooperation pattern execution.
// The orchestrator turns it into the final Result after output guardrails.
type Outcome struct {
	Status       core.Status
	Payload      map[string]any
	Contributors []string
	Failed       []string
	Failure      *core.Failure
}

// Options configures the Resolver.
type Options struct {
	Logger logging.Logger
}

// Resolver executes cooperation plans. Merge functions, scoring rules and
// key functions are registered before first use; registration is not safe
// for concurrent use with execution and belongs in startup wiring.
type Resolver struct {
	logger logging.Logger
	merges map[string]MergeFunc
	rules  map[string]ScoreRule
	keys   map[string]KeyFunc
}

// New constructs a Resolver with optional overrides.
func New(optFns ...func(o *Options)) *Resolver {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Resolver{
		logger: opts.Logger,
		merges: make(map[string]MergeFunc),
		rules:  make(map[string]ScoreRule),
		keys:   make(map[string]KeyFunc),
	}
}

// RegisterMerge binds an integrative merge function to an identifier.
func (r *Resolver) RegisterMerge(name string, fn MergeFunc) { r.merges[name] = fn }

// RegisterScoreRule binds a debative scoring rule to an identifier.
func (r *Resolver) RegisterScoreRule(name string, fn ScoreRule) { r.rules[name] = fn }

// RegisterKeyFunc binds an augmentative dedupe key function to an identifier.
func (r *Resolver) RegisterKeyFunc(name string, fn KeyFunc) { r.keys[name] = fn }

// Resolve dispatches to the pattern-specific execution.
func (r *Resolver) Resolve(ctx context.Context, run *core.RunContext, plan core.Plan, invoke Invoker) Outcome {
	switch plan.Pattern {
	case core.PatternAugmentative:
		return r.Augmentative(ctx, run, plan, invoke)
	case core.PatternIntegrative:
		return r.Integrative(ctx, run, plan, invoke)
	case core.PatternDebative:
		return r.Debative(ctx, run, plan, invoke)
	default:
		return Outcome{
			Status:  core.StatusFailed,
			Failure: core.NewFailure(core.FailNoCapableAgent, "unknown cooperation pattern %q", plan.Pattern),
		}
	}
}

// branchResult captures one fan-out branch outcome in assignment order.
type branchResult struct {
	agentID string
	payload map[string]any
	err     error
}
