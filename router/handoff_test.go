package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/internal/testutil"
)

func newTestRun() *core.RunContext {
	return core.NewRunContext(context.Background(), "run-1", core.NewTask(core.TaskSearch, map[string]any{}))
}

func TestHandoff_AcceptAndOwnership(t *testing.T) {
	registry, err := core.NewRegistry(
		testutil.NewFakeAgent("search", core.TaskSearch),
		testutil.NewFakeAgent("guide", core.TaskNavigate),
	)
	require.NoError(t, err)

	r := New(registry)
	run := newTestRun()
	task := core.NewTask(core.TaskSearch, map[string]any{})

	require.NoError(t, r.Handoff(run, OrchestratorID, "search", task))

	owner, ok := r.Owner(task.ID)
	assert.True(t, ok)
	assert.Equal(t, "search", owner)

	// A second transfer from a non-owner is rejected.
	err = r.Handoff(run, OrchestratorID, "search", task)
	assert.True(t, core.IsKind(err, core.FailHandoffRejected))

	// Release clears ownership so the orchestrator can re-dispatch.
	r.Release("search", task.ID)
	_, ok = r.Owner(task.ID)
	assert.False(t, ok)
}

func TestHandoff_RejectsKindMismatchAndUnknownAgent(t *testing.T) {
	registry, err := core.NewRegistry(testutil.NewFakeAgent("search", core.TaskSearch))
	require.NoError(t, err)

	r := New(registry)
	run := newTestRun()

	err = r.Handoff(run, OrchestratorID, "search", core.NewTask(core.TaskDepart, map[string]any{}))
	assert.True(t, core.IsKind(err, core.FailHandoffRejected))

	err = r.Handoff(run, OrchestratorID, "ghost", core.NewTask(core.TaskSearch, map[string]any{}))
	assert.True(t, core.IsKind(err, core.FailHandoffRejected))

	// Rejections are traced.
	trace := run.Trace()
	require.Len(t, trace, 2)
	for _, e := range trace {
		assert.Equal(t, core.EventHandoff, e.Kind)
		assert.Contains(t, e.Note, "rejected")
	}
}

func TestHandoff_ConcurrencyLimitRejectsImmediately(t *testing.T) {
	limited := testutil.NewFakeAgent("search", core.TaskSearch).WithMaxConcurrency(1)
	registry, err := core.NewRegistry(limited)
	require.NoError(t, err)

	r := New(registry)
	run := newTestRun()

	first := core.NewTask(core.TaskSearch, map[string]any{})
	second := core.NewTask(core.TaskSearch, map[string]any{})

	require.NoError(t, r.Handoff(run, OrchestratorID, "search", first))

	err = r.Handoff(run, OrchestratorID, "search", second)
	require.Error(t, err, "backlog is zero: the limit rejects instead of queueing")
	assert.True(t, core.IsKind(err, core.FailHandoffRejected))

	// Finishing the first task frees the slot.
	r.Release("search", first.ID)
	assert.NoError(t, r.Handoff(run, OrchestratorID, "search", second))
}

func TestHandoff_SourceMustOwnTask(t *testing.T) {
	registry, err := core.NewRegistry(
		testutil.NewFakeAgent("search", core.TaskSearch),
		testutil.NewFakeAgent("other", core.TaskSearch),
	)
	require.NoError(t, err)

	r := New(registry)
	run := newTestRun()
	task := core.NewTask(core.TaskSearch, map[string]any{})

	// An agent cannot hand off a task it never owned.
	err = r.Handoff(run, "other", "search", task)
	assert.True(t, core.IsKind(err, core.FailHandoffRejected))

	// Once the orchestrator dispatched it, the owning agent can transfer on.
	require.NoError(t, r.Handoff(run, OrchestratorID, "other", task))
	assert.NoError(t, r.Handoff(run, "other", "search", task))

	owner, _ := r.Owner(task.ID)
	assert.Equal(t, "search", owner)
}
