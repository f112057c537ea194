package resolve

import (
	"context"
	"sync"

	"github.com/hupe1980/parkmesh/core"
)

// Augmentative fans the plan's assignments out concurrently, concatenates
// the non-failed sub-results in assignment order, deduplicates by the plan's
// key function and truncates to the plan limit. A single-assignment plan is
// treated as a plain delegation and its payload passes through unchanged.
// The pattern tolerates partial failure: the run fails only if every
// participant fails (or fewer than MinSuccesses branches succeed when a
// stricter threshold is set).
func (r *Resolver) Augmentative(ctx context.Context, run *core.RunContext, plan core.Plan, invoke Invoker) Outcome {
	results := make([]branchResult, len(plan.Assignments))

	var wg sync.WaitGroup
	for i, a := range plan.Assignments {
		wg.Add(1)
		go func(i int, a core.Assignment) {
			defer wg.Done()
			payload, err := invoke(ctx, a.AgentID, a.Task)
			results[i] = branchResult{agentID: a.AgentID, payload: payload, err: err}
		}(i, a)
	}
	wg.Wait()

	var (
		contributors []string
		failed       []string
		items        []map[string]any
	)
	for _, br := range results {
		if br.err != nil {
			failed = append(failed, br.agentID)
			r.logger.Warn("augmentative branch failed", "agent_id", br.agentID, "error", br.err.Error())
			continue
		}
		contributors = append(contributors, br.agentID)
		items = append(items, branchItems(br.payload)...)
	}

	if len(contributors) == 0 {
		failure := core.NewFailure(core.FailAllBranchesFailed, "all %d augmentative branches failed", len(plan.Assignments))
		// A single-branch plan has nothing to aggregate; its own failure is
		// more useful than the umbrella kind.
		if len(results) == 1 {
			if f := core.AsFailure(results[0].err); f != nil {
				failure = f
			}
		}
		return Outcome{
			Status:  core.StatusFailed,
			Failed:  failed,
			Failure: failure,
		}
	}
	if plan.MinSuccesses > 0 && len(contributors) < plan.MinSuccesses {
		return Outcome{
			Status:  core.StatusFailed,
			Failed:  failed,
			Failure: core.NewFailure(core.FailAllBranchesFailed, "%d of %d required augmentative branches succeeded", len(contributors), plan.MinSuccesses),
		}
	}

	// A single-assignment plan is a plain delegation; its payload passes
	// through without the list merge.
	if len(results) == 1 {
		return Outcome{
			Status:       core.StatusSucceeded,
			Payload:      results[0].payload,
			Contributors: contributors,
		}
	}

	if keyFn := r.keys[plan.DedupeKey]; keyFn != nil {
		items = dedupe(items, keyFn)
	}
	if plan.Limit > 0 && len(items) > plan.Limit {
		items = items[:plan.Limit]
	}

	status := core.StatusSucceeded
	if len(failed) > 0 {
		status = core.StatusPartial
	}
	return Outcome{
		Status:       status,
		Payload:      map[string]any{ItemsKey: items, "total": len(items)},
		Contributors: contributors,
		Failed:       failed,
	}
}

// branchItems extracts the item list of a branch payload. A branch without
// an item list contributes its whole payload as a single item.
func branchItems(payload map[string]any) []map[string]any {
	if payload == nil {
		return nil
	}
	switch items := payload[ItemsKey].(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return []map[string]any{payload}
	}
}

func dedupe(items []map[string]any, keyFn KeyFunc) []map[string]any {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		k := keyFn(it)
		if k == "" {
			out = append(out, it)
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
