package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/parkmesh/core"
)

// Integrative executes the plan's staged chain. Stages with satisfied
// dependencies run concurrently (one errgroup per dependency level); a stage
// consumes the merged structured output of its predecessors via the plan's
// merge function. Any stage failure cancels the remaining chain and fails
// the run: later stages assume well-formed upstream data, so there is no
// partial integrative result.
func (r *Resolver) Integrative(ctx context.Context, run *core.RunContext, plan core.Plan, invoke Invoker) Outcome {
	levels, err := stageLevels(plan.Stages)
	if err != nil {
		return Outcome{Status: core.StatusFailed, Failure: core.WrapFailure(core.FailNoCapableAgent, err, "invalid integrative chain")}
	}

	var (
		mu      sync.Mutex
		outputs = make(map[string]map[string]any, len(plan.Stages))
	)
	contributors := make([]string, 0, len(plan.Stages))

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, stage := range level {
			g.Go(func() error {
				input, err := r.stageInput(stage, outputs, &mu)
				if err != nil {
					return core.WrapFailure(core.FailToolFailure, err, "merge for stage %s", stage.Name)
				}
				task := stage.Task
				task.Payload = input
				out, err := invoke(gctx, stage.AgentID, task)
				if err != nil {
					return err
				}
				mu.Lock()
				outputs[stage.Name] = out
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			failure := core.AsFailure(err)
			if failure == nil {
				failure = core.WrapFailure(core.FailToolFailure, err, "integrative stage failed")
			}
			run.Append(core.EventState, "", "", "", "integrative chain aborted: "+failure.Reason)
			return Outcome{Status: core.StatusFailed, Failure: failure}
		}
		for _, stage := range level {
			contributors = append(contributors, stage.AgentID)
		}
	}

	return Outcome{
		Status:       core.StatusSucceeded,
		Payload:      terminalPayload(plan.Stages, outputs),
		Contributors: contributors,
	}
}

// stageInput builds a stage's payload: the declared payload overlaid with
// either the registered merge function's output or, absent one, the raw
// outputs of its predecessors in stage-name order.
func (r *Resolver) stageInput(stage core.Stage, outputs map[string]map[string]any, mu *sync.Mutex) (map[string]any, error) {
	input := make(map[string]any, len(stage.Task.Payload))
	for k, v := range stage.Task.Payload {
		input[k] = v
	}
	if len(stage.DependsOn) == 0 {
		return input, nil
	}

	mu.Lock()
	upstream := make(map[string]map[string]any, len(stage.DependsOn))
	for _, dep := range stage.DependsOn {
		upstream[dep] = outputs[dep]
	}
	mu.Unlock()

	if fn := r.merges[stage.MergeFunc]; fn != nil {
		merged, err := fn(upstream)
		if err != nil {
			return nil, err
		}
		for k, v := range merged {
			input[k] = v
		}
		return input, nil
	}

	deps := append([]string(nil), stage.DependsOn...)
	sort.Strings(deps)
	for _, dep := range deps {
		for k, v := range upstream[dep] {
			input[k] = v
		}
	}
	return input, nil
}

// stageLevels topologically sorts the stages into dependency levels,
// rejecting duplicate names, unknown dependencies and cycles.
func stageLevels(stages []core.Stage) ([][]core.Stage, error) {
	byName := make(map[string]core.Stage, len(stages))
	for _, s := range stages {
		if s.Name == "" {
			return nil, errFmt("stage with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, errFmt("duplicate stage %q", s.Name)
		}
		byName[s.Name] = s
	}
	indegree := make(map[string]int, len(stages))
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, errFmt("stage %q depends on unknown stage %q", s.Name, dep)
			}
		}
		indegree[s.Name] = len(s.DependsOn)
	}

	done := make(map[string]bool, len(stages))
	var levels [][]core.Stage
	for len(done) < len(stages) {
		var level []core.Stage
		for _, s := range stages {
			if done[s.Name] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, s)
			}
		}
		if len(level) == 0 {
			return nil, errFmt("dependency cycle in integrative chain")
		}
		for _, s := range level {
			done[s.Name] = true
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// terminalPayload merges the outputs of stages no other stage depends on.
// A single terminal stage returns its output unwrapped.
func terminalPayload(stages []core.Stage, outputs map[string]map[string]any) map[string]any {
	depended := make(map[string]bool)
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			depended[dep] = true
		}
	}
	var terminals []string
	for _, s := range stages {
		if !depended[s.Name] {
			terminals = append(terminals, s.Name)
		}
	}
	sort.Strings(terminals)
	if len(terminals) == 1 {
		return outputs[terminals[0]]
	}
	merged := make(map[string]any, len(terminals))
	for _, name := range terminals {
		merged[name] = outputs[name]
	}
	return merged
}

func errFmt(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
