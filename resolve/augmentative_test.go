package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
)

func newRun() *core.RunContext {
	return core.NewRunContext(context.Background(), "run-1", core.NewTask(core.TaskSearch, map[string]any{}))
}

func assignments(ids ...string) []core.Assignment {
	out := make([]core.Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.Assignment{AgentID: id, Task: core.NewTask(core.TaskSearch, map[string]any{})})
	}
	return out
}

func TestAugmentative_PartialWhenSomeBranchesFail(t *testing.T) {
	r := New()
	plan := core.Plan{Pattern: core.PatternAugmentative, Assignments: assignments("a", "b", "c")}

	invoke := func(_ context.Context, agentID string, _ core.Task) (map[string]any, error) {
		if agentID == "b" {
			return nil, core.NewFailure(core.FailToolFailure, "zone feed down")
		}
		return map[string]any{ItemsKey: []map[string]any{{"name": "lot-" + agentID}}}, nil
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)

	assert.Equal(t, core.StatusPartial, outcome.Status)
	assert.Equal(t, []string{"a", "c"}, outcome.Contributors)
	assert.Equal(t, []string{"b"}, outcome.Failed)
	assert.Nil(t, outcome.Failure)

	items := outcome.Payload[ItemsKey].([]map[string]any)
	require.Len(t, items, 2)
	assert.Equal(t, "lot-a", items[0]["name"], "concatenation keeps assignment order")
}

func TestAugmentative_FailsOnlyWhenAllFail(t *testing.T) {
	r := New()
	plan := core.Plan{Pattern: core.PatternAugmentative, Assignments: assignments("a", "b")}

	invoke := func(_ context.Context, _ string, _ core.Task) (map[string]any, error) {
		return nil, core.NewFailure(core.FailToolFailure, "down")
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)
	assert.Equal(t, core.StatusFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, core.FailAllBranchesFailed, outcome.Failure.Kind)
}

func TestAugmentative_MinSuccessesThreshold(t *testing.T) {
	r := New()
	plan := core.Plan{Pattern: core.PatternAugmentative, Assignments: assignments("a", "b", "c"), MinSuccesses: 2}

	invoke := func(_ context.Context, agentID string, _ core.Task) (map[string]any, error) {
		if agentID != "a" {
			return nil, core.NewFailure(core.FailToolFailure, "down")
		}
		return map[string]any{ItemsKey: []map[string]any{{"name": "lot"}}}, nil
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)
	assert.Equal(t, core.StatusFailed, outcome.Status)
	assert.Equal(t, core.FailAllBranchesFailed, outcome.Failure.Kind)
}

func TestAugmentative_DedupeAndLimit(t *testing.T) {
	r := New()
	r.RegisterKeyFunc("by_name", func(item map[string]any) string {
		name, _ := item["name"].(string)
		return name
	})

	plan := core.Plan{
		Pattern:     core.PatternAugmentative,
		Assignments: assignments("a", "b"),
		DedupeKey:   "by_name",
		Limit:       2,
	}

	invoke := func(_ context.Context, agentID string, _ core.Task) (map[string]any, error) {
		return map[string]any{ItemsKey: []map[string]any{
			{"name": "shared"},
			{"name": "only-" + agentID},
		}}, nil
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)
	require.Equal(t, core.StatusSucceeded, outcome.Status)

	items := outcome.Payload[ItemsKey].([]map[string]any)
	require.Len(t, items, 2)
	assert.Equal(t, "shared", items[0]["name"], "duplicate key keeps first occurrence only")
	assert.Equal(t, "only-a", items[1]["name"])
	assert.Equal(t, 2, outcome.Payload["total"])
}

func TestAugmentative_SingleAssignmentPassesPayloadThrough(t *testing.T) {
	r := New()
	plan := core.Plan{Pattern: core.PatternAugmentative, Assignments: assignments("a")}

	invoke := func(_ context.Context, _ string, _ core.Task) (map[string]any, error) {
		return map[string]any{"granted": true, "gate": "A"}, nil
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)

	require.Equal(t, core.StatusSucceeded, outcome.Status)
	assert.Equal(t, true, outcome.Payload["granted"])
	assert.NotContains(t, outcome.Payload, ItemsKey, "plain delegation keeps the agent's output shape")
}

func TestAugmentative_SingleAssignmentSurfacesBranchFailure(t *testing.T) {
	r := New()
	plan := core.Plan{Pattern: core.PatternAugmentative, Assignments: assignments("a")}

	invoke := func(_ context.Context, _ string, _ core.Task) (map[string]any, error) {
		return nil, core.NewFailure(core.FailGuardrailRejected, "missing credential")
	}

	outcome := r.Augmentative(context.Background(), newRun(), plan, invoke)

	assert.Equal(t, core.StatusFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, core.FailGuardrailRejected, outcome.Failure.Kind)
}
