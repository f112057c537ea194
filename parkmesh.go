// Package parkmesh provides a high-level façade over the orchestration core
// and service abstractions (profiles, tools, guardrails & logging) enabling
// rapid construction of multi-agent parking workflows. Most applications
// interact with this package by:
//  1. Creating a ParkMesh via New() (optionally overriding default in-memory services)
//  2. Submitting tasks asynchronously (Submit) or synchronously (SubmitSync)
//  3. Reading the audit trail of a completed run (Trace)
//
// The façade delegates run execution to orchestrator.Orchestrator while
// keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply
// provider-backed tools, a real reasoning solver and a structured logger.
package parkmesh

import (
	"context"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/parkmesh/agent"
	"github.com/hupe1980/parkmesh/config"
	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/guardrail"
	"github.com/hupe1980/parkmesh/logging"
	"github.com/hupe1980/parkmesh/orchestrator"
	"github.com/hupe1980/parkmesh/profile"
	"github.com/hupe1980/parkmesh/reasoning"
	anthropicsolver "github.com/hupe1980/parkmesh/reasoning/anthropic"
	openaisolver "github.com/hupe1980/parkmesh/reasoning/openai"
	"github.com/hupe1980/parkmesh/resolve"
	"github.com/hupe1980/parkmesh/router"
	"github.com/hupe1980/parkmesh/telemetry"
	"github.com/hupe1980/parkmesh/tool"
)

// Options configures the ParkMesh instance.
type Options struct {
	// Agents replaces the default seven-agent roster. Leave nil to register
	// the built-in interaction, search, guidance, access, micro-routing,
	// on-spot and departure agents.
	Agents []core.Agent

	// Solver is the reasoning backend shared by the built-in agents.
	// Defaults to the deterministic mock solver.
	Solver core.Solver

	// Tools is the external capability registry. Defaults to a registry
	// carrying the deterministic stub tools.
	Tools *tool.Registry

	// Preferences supplies per-session user preferences at planning time.
	// Defaults to the in-memory store pre-seeded with the built-in presets.
	Preferences core.PreferenceStore

	// GuardrailPolicies maps policy names to definitions; unnamed agents
	// use the default policy.
	GuardrailPolicies map[string]guardrail.Policy

	// GuardrailDefault replaces the baseline policy applied to agents
	// without a named one, and to the top-level task boundary.
	GuardrailDefault *guardrail.Policy

	// ToolTimeout bounds each tool invocation made by the built-in agents.
	// Zero keeps the agents' own default.
	ToolTimeout time.Duration

	// Instruments enables OpenTelemetry spans and counters. Nil disables
	// instrumentation.
	Instruments *telemetry.Instruments

	// DefaultDeadline bounds runs whose tasks carry no deadline.
	DefaultDeadline time.Duration

	// HandoffRetries bounds alternate-agent attempts after a rejected
	// handoff.
	HandoffRetries int

	// CueBuffer is the per-channel capacity of each run's cue bus.
	CueBuffer int

	// MinBranchSuccesses is the minimum number of augmentative branches
	// that must succeed. Zero means any single success suffices.
	MinBranchSuccesses int

	// SearchLimit caps merged candidate lists from fan-out searches.
	SearchLimit int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ParkMesh is the high-level façade aggregating the orchestrator and its
// collaborators.
type ParkMesh struct {
	opts         Options
	registry     *core.Registry
	orchestrator *orchestrator.Orchestrator
	resolver     *resolve.Resolver
	tools        *tool.Registry
}

// New creates a new ParkMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*ParkMesh, error) {
	opts := Options{
		DefaultDeadline: 30 * time.Second,
		HandoffRetries:  2,
		CueBuffer:       8,
		SearchLimit:     5,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Solver == nil {
		opts.Solver = reasoning.NewMockSolver()
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(func(o *tool.Options) {
			o.Logger = opts.Logger
		})
		tool.RegisterStubs(opts.Tools)
	}
	if opts.Preferences == nil {
		opts.Preferences = profile.NewInMemoryStoreWithPresets()
	}
	if opts.Agents == nil {
		opts.Agents = defaultAgents(opts.Solver, opts.Tools, opts.Logger, opts.ToolTimeout)
	}

	registry, err := core.NewRegistry(opts.Agents...)
	if err != nil {
		return nil, err
	}

	rtr := router.New(registry, func(o *router.Options) {
		o.Logger = opts.Logger
	})

	filter := guardrail.New(func(o *guardrail.Options) {
		if opts.GuardrailPolicies != nil {
			o.Policies = opts.GuardrailPolicies
		}
		if opts.GuardrailDefault != nil {
			o.Default = *opts.GuardrailDefault
		}
		o.Logger = opts.Logger
	})

	resolver := resolve.New(func(o *resolve.Options) {
		o.Logger = opts.Logger
	})

	orch := orchestrator.New(registry, rtr, resolver, filter, func(o *orchestrator.Options) {
		o.Logger = opts.Logger
		o.Preferences = opts.Preferences
		o.Instruments = opts.Instruments
		o.DefaultDeadline = opts.DefaultDeadline
		o.HandoffRetries = opts.HandoffRetries
		o.CueBuffer = opts.CueBuffer
		o.MinBranchSuccesses = opts.MinBranchSuccesses
		o.SearchLimit = opts.SearchLimit
	})

	return &ParkMesh{
		opts:         opts,
		registry:     registry,
		orchestrator: orch,
		resolver:     resolver,
		tools:        opts.Tools,
	}, nil
}

// NewFromConfig builds a ParkMesh from loaded configuration: the log section
// selects the logger, orchestrator knobs map onto run defaults, the
// guardrail section becomes the default policy, tool retry budgets feed the
// stub tool registry, the profile section sizes the preference cache over
// the preset store, and the reasoning section selects the solver backend.
// Options passed alongside the config win over config-derived values.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*ParkMesh, error) {
	if cfg == nil {
		return New(optFns...)
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cfg.Log.AddSource)

	tools := tool.NewRegistry(func(o *tool.Options) {
		o.Default = tool.RetryPolicy{
			MaxTries:        uint(cfg.Tools.MaxTries),
			InitialInterval: cfg.Tools.InitialInterval,
			MaxInterval:     cfg.Tools.MaxInterval,
		}
		o.Logger = logger
	})
	tool.RegisterStubs(tools)

	prefs, err := profile.NewCachedStore(profile.NewInMemoryStoreWithPresets(), func(o *profile.CachedStoreOptions) {
		o.TTL = cfg.Profile.CacheTTL
		o.MaxCost = cfg.Profile.CacheMaxCost
	})
	if err != nil {
		return nil, err
	}

	fromConfig := func(o *Options) {
		o.Logger = logger
		o.Tools = tools
		o.Preferences = prefs
		o.Solver = solverFromConfig(cfg.Reasoning)
		o.ToolTimeout = cfg.Tools.Timeout

		o.DefaultDeadline = cfg.Orchestrator.DefaultDeadline
		o.HandoffRetries = cfg.Orchestrator.HandoffRetries
		o.CueBuffer = cfg.Orchestrator.CueBuffer
		o.MinBranchSuccesses = cfg.Orchestrator.MinBranchSuccesses
		o.SearchLimit = cfg.Orchestrator.SearchLimit

		o.GuardrailDefault = &guardrail.Policy{
			Name:           guardrail.DefaultPolicyName,
			BannedTerms:    cfg.Guardrail.BannedTerms,
			RedactPII:      cfg.Guardrail.RedactPII,
			MaxOutputBytes: cfg.Guardrail.MaxOutputBytes,
			OutputRetries:  cfg.Guardrail.OutputRetries,
		}
	}

	return New(append([]func(o *Options){fromConfig}, optFns...)...)
}

// solverFromConfig selects the reasoning backend named by the provider key.
// Unknown providers fall back to the deterministic mock.
func solverFromConfig(cfg config.ReasoningConfig) core.Solver {
	switch cfg.Provider {
	case "anthropic":
		return anthropicsolver.NewSolver(func(o *anthropicsolver.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
		})
	case "openai":
		return openaisolver.NewSolver(func(o *openaisolver.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
		})
	default:
		return reasoning.NewMockSolver()
	}
}

// Submit starts an asynchronous run and returns its handle immediately.
func (m *ParkMesh) Submit(ctx context.Context, task core.Task) (*orchestrator.RunHandle, error) {
	return m.orchestrator.Submit(ctx, task)
}

// SubmitSync is a synchronous helper that submits the task and waits for
// the terminal result, bounded by the caller's context.
func (m *ParkMesh) SubmitSync(ctx context.Context, task core.Task) (core.Result, error) {
	handle, err := m.orchestrator.Submit(ctx, task)
	if err != nil {
		return core.Result{}, err
	}

	return m.orchestrator.Await(ctx, handle)
}

// Await blocks until the run completes or the caller's context expires.
func (m *ParkMesh) Await(ctx context.Context, handle *orchestrator.RunHandle) (core.Result, error) {
	return m.orchestrator.Await(ctx, handle)
}

// Trace returns the audit trail of a terminal run.
func (m *ParkMesh) Trace(handle *orchestrator.RunHandle) ([]core.TraceEntry, error) {
	return m.orchestrator.Trace(handle)
}

// Registry exposes the immutable agent registry.
func (m *ParkMesh) Registry() *core.Registry { return m.registry }

// Resolver exposes the resolver so applications can register additional
// merge functions, scoring rules and dedupe keys before submitting runs.
func (m *ParkMesh) Resolver() *resolve.Resolver { return m.resolver }

// Tools exposes the tool registry for provider-backed replacements.
func (m *ParkMesh) Tools() *tool.Registry { return m.tools }

// defaultAgents builds the built-in roster: the seven specialized handlers,
// with two micro-routing instances so spot selection runs as a debate.
func defaultAgents(solver core.Solver, tools core.ToolInvoker, logger logging.Logger, toolTimeout time.Duration) []core.Agent {
	withDefaults := func(o *agent.Options) {
		o.Logger = logger
		o.ToolTimeout = toolTimeout
	}

	return []core.Agent{
		agent.NewInteractionAgent(solver, tools, withDefaults),
		agent.NewSearchAgent(solver, tools, withDefaults),
		agent.NewGuidanceAgent(solver, tools, withDefaults),
		agent.NewAccessAgent(solver, tools, withDefaults),
		agent.NewMicroRoutingAgent(solver, tools, func(o *agent.MicroRoutingOptions) {
			o.Logger = logger
			o.ToolTimeout = toolTimeout
			o.Priority = 1
		}),
		agent.NewMicroRoutingAgent(solver, tools, func(o *agent.MicroRoutingOptions) {
			o.Logger = logger
			o.ToolTimeout = toolTimeout
			o.ID = agent.MicroRoutingAgentID + "_ground"
			o.Strategy = agent.StrategyLowestLevel
			o.Priority = 2
		}),
		agent.NewOnSpotAgent(solver, tools, withDefaults),
		agent.NewDepartureAgent(solver, tools, withDefaults),
	}
}
