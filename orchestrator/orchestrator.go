package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/guardrail"
	"github.com/hupe1980/parkmesh/logging"
	"github.com/hupe1980/parkmesh/resolve"
	"github.com/hupe1980/parkmesh/router"
	"github.com/hupe1980/parkmesh/telemetry"
)

// Options configures the Orchestrator.
type Options struct {
	Logger logging.Logger

	// Preferences supplies per-session user preferences at planning time.
	// Nil disables preference biasing.
	Preferences core.PreferenceStore

	// Instruments enables OpenTelemetry spans and counters. Nil disables
	// instrumentation.
	Instruments *telemetry.Instruments

	// DefaultDeadline bounds runs whose task carries no deadline.
	DefaultDeadline time.Duration

	// HandoffRetries is the number of alternate agents tried after a
	// rejected handoff before the branch fails.
	HandoffRetries int

	// CueBuffer is the per-channel capacity of the run's cue bus.
	CueBuffer int

	// MinBranchSuccesses is the minimum number of augmentative branches
	// that must succeed. Zero means any single success suffices.
	MinBranchSuccesses int

	// SearchLimit caps merged candidate lists from fan-out searches.
	SearchLimit int
}

// Orchestrator owns the run lifecycle. It is safe for concurrent Submit
// calls; every run gets its own context, cue bus and trace.
type Orchestrator struct {
	registry    *core.Registry
	router      *router.Router
	resolver    *resolve.Resolver
	filter      *guardrail.Filter
	prefs       core.PreferenceStore
	logger      logging.Logger
	instruments *telemetry.Instruments

	defaultDeadline    time.Duration
	handoffRetries     int
	cueBuffer          int
	minBranchSuccesses int
	searchLimit        int

	mu   sync.Mutex
	runs map[string]*RunHandle
}

// New wires an Orchestrator over the immutable registry and its
// collaborators, and registers the built-in merge functions, scoring rules
// and dedupe keys on the resolver.
func New(registry *core.Registry, rtr *router.Router, resolver *resolve.Resolver, filter *guardrail.Filter, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		DefaultDeadline: 30 * time.Second,
		HandoffRetries:  2,
		CueBuffer:       8,
		SearchLimit:     5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registerBuiltins(resolver)

	return &Orchestrator{
		registry:           registry,
		router:             rtr,
		resolver:           resolver,
		filter:             filter,
		prefs:              opts.Preferences,
		logger:             opts.Logger,
		instruments:        opts.Instruments,
		defaultDeadline:    opts.DefaultDeadline,
		handoffRetries:     opts.HandoffRetries,
		cueBuffer:          opts.CueBuffer,
		minBranchSuccesses: opts.MinBranchSuccesses,
		searchLimit:        opts.SearchLimit,
	}
}

// Submit accepts a task and starts its run. It never blocks on execution:
// the returned handle completes asynchronously. The run's deadline is the
// task deadline, or now plus the configured default when the task carries
// none.
func (o *Orchestrator) Submit(ctx context.Context, task core.Task) (*RunHandle, error) {
	if !task.Kind.Valid() {
		return nil, fmt.Errorf("unknown task kind %q", task.Kind)
	}
	if task.ID == "" {
		task.ID = core.NewID()
	}

	deadline := task.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(o.defaultDeadline)
	}

	runCtx, cancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)

	runID := core.NewID()
	handle := &RunHandle{
		runID:  runID,
		task:   task,
		run:    core.NewRunContext(runCtx, runID, task),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	if o.runs == nil {
		o.runs = make(map[string]*RunHandle)
	}
	o.runs[runID] = handle
	o.mu.Unlock()

	go o.execute(handle)

	return handle, nil
}

// Await blocks until the run completes or the caller's context expires.
func (o *Orchestrator) Await(ctx context.Context, handle *RunHandle) (core.Result, error) {
	select {
	case <-handle.done:
		handle.mu.Lock()
		defer handle.mu.Unlock()
		return handle.result, nil
	case <-ctx.Done():
		return core.Result{}, ctx.Err()
	}
}

// Trace returns the run's audit trail. It is only available once the run
// reached a terminal state.
func (o *Orchestrator) Trace(handle *RunHandle) ([]core.TraceEntry, error) {
	if !handle.terminal() {
		return nil, errors.New("run has not reached a terminal state")
	}
	return handle.run.Trace(), nil
}

// Run looks up an in-flight or completed run by id.
func (o *Orchestrator) Run(runID string) (*RunHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.runs[runID]
	return h, ok
}

func (o *Orchestrator) execute(h *RunHandle) {
	run := h.run
	ctx := run.Context()
	start := time.Now()

	if o.instruments != nil {
		spanCtx, runSpan := o.instruments.StartRunSpan(ctx, h.runID, h.task.ID, string(h.task.Kind))
		ctx = spanCtx
		defer runSpan.End()
	}

	bus := router.NewCueBus(run, func(co *router.CueBusOptions) {
		co.Buffer = o.cueBuffer
		co.Logger = o.logger
		co.Instruments = o.instruments
	})

	defer func() {
		run.Seal()
		bus.Close()
		h.cancel()
	}()

	o.transition(run, StateReceived)

	// The submitted task passes the input guardrail before any planning so
	// invalid input fails the run as a guardrail rejection, not as a pile of
	// failed branches.
	task := h.task
	sanitized, verdicts, err := o.filter.ValidateInput(guardrail.DefaultPolicyName, router.OrchestratorID, task)
	o.traceVerdicts(run, task.ID, verdicts)
	if err != nil {
		if o.instruments != nil {
			o.instruments.RecordGuardrailReject(ctx, guardrail.DefaultPolicyName, router.OrchestratorID)
		}
		o.finish(h, core.Result{
			Status:  core.StatusFailed,
			Failure: core.AsFailure(err),
		}, start)
		return
	}
	task.Payload = sanitized

	o.transition(run, StatePlanning)

	prefs := o.readPreferences(ctx, task)

	plan, err := o.plan(task)
	if err != nil {
		o.finish(h, core.Result{
			Status:  core.StatusFailed,
			Failure: core.AsFailure(err),
		}, start)
		return
	}

	o.transition(run, StateDispatching)
	o.transition(run, StateAwaiting)

	invoke := func(ictx context.Context, agentID string, task core.Task) (map[string]any, error) {
		return o.invokeAgent(ictx, run, bus, prefs, agentID, task)
	}

	outcome := o.resolver.Resolve(ctx, run, plan, invoke)

	o.transition(run, StateMerging)

	if deadlineExpired(ctx) {
		outcome = applyDeadline(plan, outcome)
	}

	if outcome.Status != core.StatusFailed {
		payload, verdicts, verr := o.filter.ValidateOutput(guardrail.DefaultPolicyName, router.OrchestratorID, outcome.Payload)
		o.traceVerdicts(run, h.task.ID, verdicts)
		if verr != nil {
			outcome = resolve.Outcome{
				Status:  core.StatusFailed,
				Failed:  outcome.Contributors,
				Failure: core.AsFailure(verr),
			}
		} else {
			outcome.Payload = payload
		}
	}

	o.finish(h, core.Result{
		Status:       outcome.Status,
		Payload:      outcome.Payload,
		Contributors: outcome.Contributors,
		Failed:       outcome.Failed,
		Failure:      outcome.Failure,
	}, start)
}

// invokeAgent funnels one sub-task to one agent: handoff (with bounded
// alternate retries), input guardrail, cue collection, execution, output
// guardrail, release. It is the Invoker closure handed to the resolver.
func (o *Orchestrator) invokeAgent(ctx context.Context, run *core.RunContext, bus *router.CueBus, prefs map[string]any, agentID string, task core.Task) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.WrapFailure(core.FailDeadlineExceeded, err, "run expired before dispatch to %s", agentID)
	}

	target := agentID
	tried := map[string]bool{}
	var lastErr error

	for attempt := 0; attempt <= o.handoffRetries; attempt++ {
		if attempt > 0 {
			alt := o.alternate(task.Kind, tried)
			if alt == "" {
				break
			}
			run.Append(core.EventRetry, router.OrchestratorID, alt, task.ID, fmt.Sprintf("handoff retry %d", attempt))
			target = alt
		}
		tried[target] = true

		err := o.router.Handoff(run, router.OrchestratorID, target, task)
		if o.instruments != nil {
			o.instruments.RecordHandoff(ctx, target, err == nil)
		}
		if err != nil {
			lastErr = err
			continue
		}

		payload, execErr := o.runAgent(ctx, run, bus, prefs, target, task)
		o.router.Release(target, task.ID)
		bus.MarkCompleted(target)

		return payload, execErr
	}

	if lastErr == nil {
		lastErr = core.NewFailure(core.FailHandoffRejected, "no agent accepted task %s", task.ID)
	}

	return nil, lastErr
}

func (o *Orchestrator) runAgent(ctx context.Context, run *core.RunContext, bus *router.CueBus, prefs map[string]any, agentID string, task core.Task) (map[string]any, error) {
	agent, ok := o.registry.Get(agentID)
	if !ok {
		return nil, core.NewFailure(core.FailNoCapableAgent, "agent %s disappeared from registry", agentID)
	}

	policy := agent.Capability().GuardrailPolicy

	sanitized, verdicts, err := o.filter.ValidateInput(policy, agentID, task)
	o.traceVerdicts(run, task.ID, verdicts)
	if err != nil {
		if o.instruments != nil {
			o.instruments.RecordGuardrailReject(ctx, policy, agentID)
		}
		return nil, err
	}
	task.Payload = sanitized

	run.Append(core.EventDispatch, router.OrchestratorID, agentID, task.ID, "kind="+string(task.Kind))

	execCtx := ctx
	if o.instruments != nil {
		newCtx, agentSpan := o.instruments.StartAgentSpan(ctx, agentID, task.ID)
		execCtx = newCtx
		defer agentSpan.End()
	}

	inv := &core.Invocation{
		Context:     execCtx,
		Task:        task,
		Cues:        bus.Collect(agentID),
		Preferences: prefs,
		CueFunc: func(to string, data map[string]any) {
			bus.Cue(agentID, to, data)
		},
	}

	payload, execErr := agent.Execute(inv)
	if execErr != nil {
		if execCtx.Err() != nil {
			return nil, core.WrapFailure(core.FailDeadlineExceeded, execErr, "agent %s cancelled by run deadline", agentID)
		}
		if f := core.AsFailure(execErr); f != nil {
			return nil, f
		}
		return nil, core.WrapFailure(core.FailToolFailure, execErr, "agent %s execution failed", agentID)
	}

	validated, outVerdicts, outErr := o.filter.ValidateOutput(policy, agentID, payload)
	o.traceVerdicts(run, task.ID, outVerdicts)
	if outErr != nil {
		if o.instruments != nil {
			o.instruments.RecordGuardrailReject(ctx, policy, agentID)
		}
		return nil, outErr
	}

	return validated, nil
}

// alternate returns the highest-priority eligible agent not yet tried.
func (o *Orchestrator) alternate(kind core.TaskKind, tried map[string]bool) string {
	for _, a := range o.registry.EligibleFor(kind) {
		if !tried[a.Capability().ID] {
			return a.Capability().ID
		}
	}
	return ""
}

func (o *Orchestrator) readPreferences(ctx context.Context, task core.Task) map[string]any {
	if o.prefs == nil {
		return nil
	}

	sessionID, _ := task.Payload["session_id"].(string)
	if sessionID == "" {
		return nil
	}

	prefs, err := o.prefs.Get(ctx, sessionID)
	if err != nil {
		o.logger.Warn("preference read failed, continuing without bias", "session_id", sessionID, "error", err)
		return nil
	}

	return prefs
}

func (o *Orchestrator) transition(run *core.RunContext, state State) {
	run.Append(core.EventState, "", "", run.Task().ID, string(state))
	o.logger.Debug("run state", "run_id", run.RunID(), "state", string(state))
}

func (o *Orchestrator) traceVerdicts(run *core.RunContext, taskID string, verdicts []guardrail.Verdict) {
	for _, v := range verdicts {
		kind := core.EventGuardrail
		if !v.Allowed {
			kind = core.EventGuardrailReject
		}

		note := string(v.Direction)
		if v.Reason != "" {
			note += ": " + v.Reason
		}
		if v.Redacted {
			note += " (redacted)"
		}
		if v.Truncated && v.Reason == "" {
			note += " (truncated)"
		}

		run.Append(kind, "", v.AgentID, taskID, note)
	}
}

func (o *Orchestrator) finish(h *RunHandle, result core.Result, start time.Time) {
	h.run.Seal()
	result.Trace = h.run.Trace()

	if o.instruments != nil {
		o.instruments.RecordRun(context.Background(), string(result.Status))
	}

	o.logger.Info("run completed",
		"run_id", h.runID,
		"status", string(result.Status),
		"contributors", len(result.Contributors),
		"duration", time.Since(start).String(),
	)

	h.complete(result)
}

// deadlineExpired reports whether the run context ended by deadline rather
// than explicit cancellation.
func deadlineExpired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// applyDeadline reshapes an outcome after deadline expiry: a fan-out run
// that already banked accepted branch results degrades to partial success;
// everything else fails with the deadline kind.
func applyDeadline(plan core.Plan, outcome resolve.Outcome) resolve.Outcome {
	failure := core.NewFailure(core.FailDeadlineExceeded, "run deadline exceeded")

	fanOut := plan.Pattern == core.PatternAugmentative || plan.Pattern == core.PatternDebative
	if fanOut && len(outcome.Contributors) > 0 && outcome.Payload != nil {
		outcome.Status = core.StatusPartial
		outcome.Failure = failure
		return outcome
	}

	return resolve.Outcome{
		Status:  core.StatusFailed,
		Failed:  append(outcome.Failed, outcome.Contributors...),
		Failure: failure,
	}
}
