package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/guardrail"
	"github.com/hupe1980/parkmesh/internal/testutil"
	"github.com/hupe1980/parkmesh/profile"
	"github.com/hupe1980/parkmesh/resolve"
	"github.com/hupe1980/parkmesh/router"
)

func newOrchestrator(t *testing.T, agents []core.Agent, optFns ...func(o *Options)) *Orchestrator {
	t.Helper()

	registry, err := core.NewRegistry(agents...)
	require.NoError(t, err)

	return New(registry, router.New(registry), resolve.New(), guardrail.New(), optFns...)
}

func submitAndAwait(t *testing.T, o *Orchestrator, task core.Task) (core.Result, *RunHandle) {
	t.Helper()

	handle, err := o.Submit(context.Background(), task)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := o.Await(ctx, handle)
	require.NoError(t, err)

	return result, handle
}

func TestOrchestrator_FanOutSearchMergesZones(t *testing.T) {
	search := testutil.NewFakeAgent("informative_search", core.TaskSearch).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			zone := inv.Task.Payload["zone"].(string)
			return map[string]any{"items": []map[string]any{
				{"name": "Lot " + zone, "zone": zone},
				{"name": "Shared Garage", "zone": zone},
			}}, nil
		})

	o := newOrchestrator(t, []core.Agent{search})

	task := testutil.NewTaskBuilder(core.TaskSearch).
		Payload("zones", []string{"downtown", "midtown"}).
		Build()

	result, handle := submitAndAwait(t, o, task)

	require.Equal(t, core.StatusSucceeded, result.Status)
	items := result.Payload["items"].([]map[string]any)

	// "Shared Garage" appears in both zones and is deduplicated by name.
	require.Len(t, items, 3)
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item["name"].(string))
	}
	assert.ElementsMatch(t, []string{"Lot downtown", "Shared Garage", "Lot midtown"}, names)

	// Both branches ran; the lifecycle appears in the trace.
	assert.Len(t, search.Invocations, 2)
	trace, err := o.Trace(handle)
	require.NoError(t, err)
	assertStateOrder(t, trace, StateReceived, StatePlanning, StateDispatching, StateAwaiting, StateMerging)
}

func assertStateOrder(t *testing.T, trace []core.TraceEntry, states ...State) {
	t.Helper()

	var seen []string
	for _, e := range trace {
		if e.Kind == core.EventState {
			seen = append(seen, e.Note)
		}
	}
	for i, state := range states {
		require.Less(t, i, len(seen), "missing state %s", state)
		assert.Equal(t, string(state), seen[i])
	}
}

func TestOrchestrator_NoCapableAgentFailsRun(t *testing.T) {
	o := newOrchestrator(t, []core.Agent{testutil.NewFakeAgent("on_spot", core.TaskMonitor)})

	result, _ := submitAndAwait(t, o, testutil.NewTaskBuilder(core.TaskDepart).Build())

	assert.Equal(t, core.StatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, core.FailNoCapableAgent, result.Failure.Kind)
}

func TestOrchestrator_SubmitRejectsUnknownKind(t *testing.T) {
	o := newOrchestrator(t, []core.Agent{testutil.NewFakeAgent("on_spot", core.TaskMonitor)})

	_, err := o.Submit(context.Background(), core.Task{Kind: core.TaskKind("teleport")})
	assert.Error(t, err)
}

func TestOrchestrator_RejectedHandoffRetriesAlternate(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	busy := testutil.NewFakeAgent("on_spot", core.TaskMonitor).
		WithPriority(1).
		WithMaxConcurrency(1).
		WithFn(func(inv *core.Invocation) (map[string]any, error) {
			close(started)
			<-release
			return map[string]any{"held": true}, nil
		})
	standby := testutil.NewFakeAgent("on_spot_standby", core.TaskMonitor).
		WithPriority(2).
		WithFn(func(inv *core.Invocation) (map[string]any, error) {
			return map[string]any{"taken_over": true}, nil
		})

	o := newOrchestrator(t, []core.Agent{busy, standby})

	first, err := o.Submit(context.Background(), testutil.NewTaskBuilder(core.TaskMonitor).Build())
	require.NoError(t, err)

	// Wait until the primary is occupied before submitting the second run.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("primary agent never started")
	}

	second, handle := submitAndAwait(t, o, testutil.NewTaskBuilder(core.TaskMonitor).Build())

	require.Equal(t, core.StatusSucceeded, second.Status)
	assert.Equal(t, true, second.Payload["taken_over"])

	trace, err := o.Trace(handle)
	require.NoError(t, err)
	var retried bool
	for _, e := range trace {
		if e.Kind == core.EventRetry && e.To == "on_spot_standby" {
			retried = true
		}
	}
	assert.True(t, retried, "rejected handoff must be retried against the standby agent")

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	firstResult, err := o.Await(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSucceeded, firstResult.Status)
}

func TestOrchestrator_DeadlineFailsRunWithoutContributions(t *testing.T) {
	slow := testutil.NewFakeAgent("on_spot", core.TaskMonitor).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			<-inv.Context.Done()
			return nil, inv.Context.Err()
		})

	o := newOrchestrator(t, []core.Agent{slow})

	task := testutil.NewTaskBuilder(core.TaskMonitor).
		Deadline(time.Now().Add(30 * time.Millisecond)).
		Build()

	result, _ := submitAndAwait(t, o, task)

	assert.Equal(t, core.StatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, core.FailDeadlineExceeded, result.Failure.Kind)
}

func TestOrchestrator_DeadlineDegradesFanOutToPartial(t *testing.T) {
	fast := testutil.NewFakeAgent("informative_search", core.TaskSearch).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			if inv.Task.Payload["zone"] == "downtown" {
				return map[string]any{"items": []map[string]any{{"name": "Quick Lot"}}}, nil
			}
			<-inv.Context.Done()
			return nil, inv.Context.Err()
		})

	o := newOrchestrator(t, []core.Agent{fast})

	task := testutil.NewTaskBuilder(core.TaskSearch).
		Payload("zones", []string{"downtown", "midtown"}).
		Deadline(time.Now().Add(50 * time.Millisecond)).
		Build()

	result, _ := submitAndAwait(t, o, task)

	assert.Equal(t, core.StatusPartial, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, core.FailDeadlineExceeded, result.Failure.Kind)
	items := result.Payload["items"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Quick Lot", items[0]["name"])
}

func TestOrchestrator_TraceUnavailableBeforeTerminal(t *testing.T) {
	release := make(chan struct{})
	blocking := testutil.NewFakeAgent("on_spot", core.TaskMonitor).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			<-release
			return map[string]any{}, nil
		})

	o := newOrchestrator(t, []core.Agent{blocking})

	handle, err := o.Submit(context.Background(), testutil.NewTaskBuilder(core.TaskMonitor).Build())
	require.NoError(t, err)

	_, err = o.Trace(handle)
	assert.Error(t, err)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = o.Await(ctx, handle)
	require.NoError(t, err)

	_, err = o.Trace(handle)
	assert.NoError(t, err)
}

func TestOrchestrator_NavigateChainDeliversCueAndFacility(t *testing.T) {
	guidance := testutil.NewFakeAgent("on_route_guidance", core.TaskNavigate).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			inv.Cue("access", map[string]any{"heads_up": "arriving"})
			return map[string]any{"facility": "Harbourfront Garage", "eta_minutes": float64(7)}, nil
		})

	var accessInv *core.Invocation
	access := testutil.NewFakeAgent("access", core.TaskAccess).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			accessInv = inv
			return map[string]any{
				"granted":  true,
				"facility": inv.Task.Payload["facility"],
			}, nil
		})

	o := newOrchestrator(t, []core.Agent{guidance, access})

	task := testutil.NewTaskBuilder(core.TaskNavigate).
		Payload("origin", "Union Station").
		Payload("credential", "token-4711").
		Build()

	result, _ := submitAndAwait(t, o, task)

	require.Equal(t, core.StatusSucceeded, result.Status)
	assert.Equal(t, true, result.Payload["granted"])
	assert.Equal(t, "Harbourfront Garage", result.Payload["facility"])
	assert.Equal(t, []string{"on_route_guidance", "access"}, result.Contributors)

	require.NotNil(t, accessInv)
	require.Len(t, accessInv.Cues, 1)
	assert.Equal(t, "on_route_guidance", accessInv.Cues[0].Source)
	assert.Equal(t, "arriving", accessInv.Cues[0].Data["heads_up"])
}

func TestOrchestrator_MicroRouteDebateSelectsMostFree(t *testing.T) {
	a := testutil.NewFakeAgent("micro_routing", core.TaskMicroRoute).WithPriority(1).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			return map[string]any{"level": "P2", "free_spots": float64(4)}, nil
		})
	b := testutil.NewFakeAgent("micro_routing_ground", core.TaskMicroRoute).WithPriority(2).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			return map[string]any{"level": "P1", "free_spots": float64(11)}, nil
		})

	o := newOrchestrator(t, []core.Agent{a, b})

	result, _ := submitAndAwait(t, o, testutil.NewTaskBuilder(core.TaskMicroRoute).
		Payload("facility", "City Hall Garage").
		Build())

	require.Equal(t, core.StatusSucceeded, result.Status)
	assert.Equal(t, "P1", result.Payload["level"])
	assert.Equal(t, []string{"micro_routing_ground"}, result.Contributors)
}

func TestOrchestrator_GuardrailRejectsInvalidInput(t *testing.T) {
	agent := testutil.NewFakeAgent("access", core.TaskAccess)
	agent.Cap.GuardrailPolicy = "strict"

	registry, err := core.NewRegistry(agent)
	require.NoError(t, err)

	filter := guardrail.New(func(o *guardrail.Options) {
		o.Policies = map[string]guardrail.Policy{
			"strict": {Name: "strict", RequiredInputKeys: []string{"credential"}},
		}
	})

	o := New(registry, router.New(registry), resolve.New(), filter)

	result, handle := submitAndAwait(t, o, testutil.NewTaskBuilder(core.TaskAccess).Build())

	assert.Equal(t, core.StatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, core.FailGuardrailRejected, result.Failure.Kind)
	assert.Empty(t, agent.Invocations, "rejected input never reaches the agent")

	trace, terr := o.Trace(handle)
	require.NoError(t, terr)
	var rejected bool
	for _, e := range trace {
		if e.Kind == core.EventGuardrailReject {
			rejected = true
		}
	}
	assert.True(t, rejected)
}

func TestOrchestrator_GuardrailRejectsTopLevelInput(t *testing.T) {
	search := testutil.NewFakeAgent("informative_search", core.TaskSearch)

	registry, err := core.NewRegistry(search)
	require.NoError(t, err)

	filter := guardrail.New(func(o *guardrail.Options) {
		p := guardrail.DefaultPolicy()
		p.BannedTerms = []string{"override the gate"}
		o.Default = p
	})

	o := New(registry, router.New(registry), resolve.New(), filter)

	// A fan-out task with banned content fails as a guardrail rejection,
	// not as a collection of failed branches.
	task := testutil.NewTaskBuilder(core.TaskSearch).
		Payload("zones", []string{"downtown", "midtown"}).
		Payload("note", "please Override The Gate").
		Build()

	result, handle := submitAndAwait(t, o, task)

	assert.Equal(t, core.StatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, core.FailGuardrailRejected, result.Failure.Kind)
	assert.Empty(t, search.Invocations, "rejected input never reaches an agent")

	trace, terr := o.Trace(handle)
	require.NoError(t, terr)

	var rejected, planned bool
	for _, e := range trace {
		if e.Kind == core.EventGuardrailReject {
			rejected = true
		}
		if e.Kind == core.EventState && e.Note == string(StatePlanning) {
			planned = true
		}
	}
	assert.True(t, rejected)
	assert.False(t, planned, "rejected input must fail before planning")
}

func TestOrchestrator_PreferencesReachAgents(t *testing.T) {
	store := profile.NewInMemoryStoreWithPresets()

	var got map[string]any
	agent := testutil.NewFakeAgent("informative_search", core.TaskSearch).WithFn(
		func(inv *core.Invocation) (map[string]any, error) {
			got = inv.Preferences
			return map[string]any{"items": []map[string]any{}}, nil
		})

	o := newOrchestrator(t, []core.Agent{agent}, func(opt *Options) {
		opt.Preferences = store
	})

	result, _ := submitAndAwait(t, o, testutil.NewTaskBuilder(core.TaskSearch).
		Payload("session_id", profile.PresetCommuterSaver).
		Payload("zone", "downtown").
		Build())

	require.Equal(t, core.StatusSucceeded, result.Status)
	require.NotNil(t, got)
	assert.Equal(t, "highest", got["price_priority"])
}
