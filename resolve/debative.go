package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/parkmesh/core"
)

// candidate is one debative branch result eligible for selection.
type candidate struct {
	agentID  string
	priority int
	payload  map[string]any
}

// Debative dispatches the identical task to every assigned agent instance,
// filters the successful candidates through the task's hard constraints and
// returns the top-scoring one under the plan's scoring rule. Ties break by
// declared agent priority, then agent id, so repeated runs with identical
// inputs select the same winner. Every candidate is appended to the run
// trace for auditability.
func (r *Resolver) Debative(ctx context.Context, run *core.RunContext, plan core.Plan, invoke Invoker) Outcome {
	rule := r.rules[plan.ScoreRule]
	if rule == nil {
		return Outcome{
			Status:  core.StatusFailed,
			Failure: core.NewFailure(core.FailNoCapableAgent, "unknown scoring rule %q", plan.ScoreRule),
		}
	}

	results := make([]branchResult, len(plan.Assignments))
	priorities := make([]int, len(plan.Assignments))

	var wg sync.WaitGroup
	for i, a := range plan.Assignments {
		priorities[i] = a.Priority
		wg.Add(1)
		go func(i int, a core.Assignment) {
			defer wg.Done()
			payload, err := invoke(ctx, a.AgentID, a.Task)
			results[i] = branchResult{agentID: a.AgentID, payload: payload, err: err}
		}(i, a)
	}
	wg.Wait()

	var (
		candidates []candidate
		failed     []string
	)
	for i, br := range results {
		if br.err != nil {
			failed = append(failed, br.agentID)
			r.logger.Warn("debative branch failed", "agent_id", br.agentID, "error", br.err.Error())
			continue
		}
		run.Append(core.EventCandidate, br.agentID, "", plan.Assignments[i].Task.ID, fmt.Sprintf("candidate from %s", br.agentID))
		if !plan.Assignments[i].Task.Constraints.HardSatisfied(br.payload) {
			run.Append(core.EventCandidate, br.agentID, "", plan.Assignments[i].Task.ID, "rejected: hard constraint violated")
			failed = append(failed, br.agentID)
			continue
		}
		candidates = append(candidates, candidate{agentID: br.agentID, priority: priorities[i], payload: br.payload})
	}

	if len(candidates) == 0 {
		reason := "all debative candidates failed"
		if anySucceeded(results) {
			reason = "no debative candidate satisfies the hard constraints"
		}
		return Outcome{
			Status:  core.StatusFailed,
			Failed:  failed,
			Failure: core.NewFailure(core.FailAllBranchesFailed, "%s", reason),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if cmp := rule(candidates[i].payload, candidates[j].payload); cmp != 0 {
			return cmp < 0
		}
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].agentID < candidates[j].agentID
	})

	winner := candidates[0]
	run.Append(core.EventCandidate, winner.agentID, "", "", "selected")
	return Outcome{
		Status:       core.StatusSucceeded,
		Payload:      winner.payload,
		Contributors: []string{winner.agentID},
		Failed:       failed,
	}
}

func anySucceeded(results []branchResult) bool {
	for _, br := range results {
		if br.err == nil {
			return true
		}
	}
	return false
}
