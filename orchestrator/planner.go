package orchestrator

import (
	"github.com/hupe1980/parkmesh/core"
)

// Built-in identifiers resolved through the resolver registries. Registered
// by New so plans stay plain data.
const (
	KeyByName       = "by_name"
	RuleMostFree    = "most_free"
	RuleBestScore   = "best_score"
	MergeOverlay    = "overlay"
	MergeFacilityOf = "carry_facility"
)

// plan builds the cooperation plan for a task: fan-out partitioned search,
// a staged navigate chain, a micro-routing debate, and a single-agent
// augmentative plan for every remaining kind. Preferences read at planning
// time ride along in the sub-task payloads only where a kind needs them;
// constraint biasing stays with the consuming agent.
func (o *Orchestrator) plan(task core.Task) (core.Plan, error) {
	eligible := o.registry.EligibleFor(task.Kind)
	if len(eligible) == 0 {
		return core.Plan{}, core.NewFailure(core.FailNoCapableAgent, "no agent registered for kind %q", task.Kind)
	}

	switch task.Kind {
	case core.TaskSearch:
		return o.planSearch(task, eligible), nil
	case core.TaskMicroRoute:
		return o.planDebate(task, eligible), nil
	case core.TaskNavigate:
		return o.planNavigate(task), nil
	default:
		return core.Plan{
			Pattern: core.PatternAugmentative,
			Assignments: []core.Assignment{{
				AgentID:  eligible[0].Capability().ID,
				Task:     task,
				Priority: eligible[0].Capability().Priority,
			}},
		}, nil
	}
}

// planSearch partitions a multi-zone search into one branch per zone,
// spreading branches over the eligible agents round-robin. Merged results
// are deduplicated by facility name and truncated to the configured limit.
func (o *Orchestrator) planSearch(task core.Task, eligible []core.Agent) core.Plan {
	zones := stringSlice(task.Payload["zones"])

	limit := o.searchLimit
	if n, ok := payloadInt(task.Payload["limit"]); ok && n > 0 {
		limit = n
	}

	plan := core.Plan{
		Pattern:      core.PatternAugmentative,
		DedupeKey:    KeyByName,
		Limit:        limit,
		MinSuccesses: o.minBranchSuccesses,
	}

	if len(zones) == 0 {
		plan.Assignments = []core.Assignment{{
			AgentID:  eligible[0].Capability().ID,
			Task:     task,
			Priority: eligible[0].Capability().Priority,
		}}
		return plan
	}

	for i, zone := range zones {
		payload := make(map[string]any, len(task.Payload)+1)
		for k, v := range task.Payload {
			if k == "zones" {
				continue
			}
			payload[k] = v
		}
		payload["zone"] = zone

		cap := eligible[i%len(eligible)].Capability()
		plan.Assignments = append(plan.Assignments, core.Assignment{
			AgentID:  cap.ID,
			Task:     task.Sub(core.TaskSearch, payload),
			Priority: cap.Priority,
		})
	}

	return plan
}

// planDebate sends the identical task content to every eligible instance
// and lets the scoring rule pick the winner.
func (o *Orchestrator) planDebate(task core.Task, eligible []core.Agent) core.Plan {
	plan := core.Plan{
		Pattern:   core.PatternDebative,
		ScoreRule: RuleMostFree,
	}

	if rule, ok := task.Payload["score_rule"].(string); ok && rule != "" {
		plan.ScoreRule = rule
	}

	for _, a := range eligible {
		cap := a.Capability()
		plan.Assignments = append(plan.Assignments, core.Assignment{
			AgentID:  cap.ID,
			Task:     task.Sub(task.Kind, task.Payload),
			Priority: cap.Priority,
		})
	}

	return plan
}

// planNavigate builds the staged trip chain: guidance first, then
// contactless access when the task carries a credential. The access stage
// consumes the facility selected by the guidance stage.
func (o *Orchestrator) planNavigate(task core.Task) core.Plan {
	guidance := o.registry.EligibleFor(core.TaskNavigate)[0].Capability().ID

	plan := core.Plan{
		Pattern: core.PatternIntegrative,
		Stages: []core.Stage{{
			Name:    "navigate",
			AgentID: guidance,
			Task:    task.Sub(core.TaskNavigate, task.Payload),
		}},
	}

	credential, _ := task.Payload["credential"].(string)
	if credential == "" {
		return plan
	}

	access := o.registry.EligibleFor(core.TaskAccess)
	if len(access) == 0 {
		return plan
	}

	plan.Stages = append(plan.Stages, core.Stage{
		Name:      "access",
		AgentID:   access[0].Capability().ID,
		Task:      task.Sub(core.TaskAccess, map[string]any{"credential": credential}),
		DependsOn: []string{"navigate"},
		MergeFunc: MergeFacilityOf,
	})

	return plan
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, raw := range s {
			if str, ok := raw.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func payloadInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
