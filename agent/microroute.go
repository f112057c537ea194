package agent

import (
	"fmt"

	"github.com/hupe1980/parkmesh/core"
)

// Micro-routing strategies. Strategies only differ in how they pick a level
// from the facility's occupancy report, which lets several micro-routing
// instances debate the same task.
const (
	// StrategyMostFree picks the level with the most free spots.
	StrategyMostFree = "most_free"
	// StrategyLowestLevel picks the lowest level with any free spot, keeping
	// the walk back to the entrance short.
	StrategyLowestLevel = "lowest_level"
)

// MicroRoutingOptions extend Options with the instance identity and level
// selection strategy.
type MicroRoutingOptions struct {
	Options

	// ID overrides the default agent identifier so several instances can be
	// registered side by side.
	ID string

	// Strategy selects the level-picking behavior.
	Strategy string
}

// MicroRoutingAgent navigates the vehicle inside the facility to a concrete
// spot, using live occupancy data.
type MicroRoutingAgent struct {
	Base
	strategy string
}

// NewMicroRoutingAgent constructs a micro-routing agent instance.
func NewMicroRoutingAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *MicroRoutingOptions)) *MicroRoutingAgent {
	opts := MicroRoutingOptions{
		Options:  Options{GuardrailPolicy: DefaultGuardrailPolicy},
		ID:       MicroRoutingAgentID,
		Strategy: StrategyMostFree,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              opts.ID,
		Kinds:           []core.TaskKind{core.TaskMicroRoute},
		Tools:           []string{"occupancy"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Routes the vehicle inside the facility to a free spot using occupancy data.",
	}

	return &MicroRoutingAgent{Base: newBase(cap, solver, tools, opts.Options), strategy: opts.Strategy}
}

// Execute implements core.Agent.
func (a *MicroRoutingAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	facility, _ := inv.Task.Payload["facility"].(string)
	if facility == "" {
		for _, cue := range inv.Cues {
			if name, ok := cue.Data["facility"].(string); ok && name != "" {
				facility = name
				break
			}
		}
	}

	if facility == "" {
		return nil, fmt.Errorf("micro_route task carries no facility")
	}

	occupancy, err := a.invokeTool(inv, "occupancy", map[string]any{"facility": facility})
	if err != nil {
		return nil, err
	}

	level, free, ok := a.pickLevel(occupancy["levels"])
	if !ok {
		return nil, fmt.Errorf("facility %s reports no free spots", facility)
	}

	return map[string]any{
		"facility":   facility,
		"level":      level,
		"free_spots": free,
		"strategy":   a.strategy,
		"directions": fmt.Sprintf("proceed to level %d", level),
	}, nil
}

func (a *MicroRoutingAgent) pickLevel(v any) (level int, free float64, ok bool) {
	levels, isSlice := v.([]map[string]any)
	if !isSlice {
		raw, isAny := v.([]any)
		if !isAny {
			return 0, 0, false
		}
		for _, entry := range raw {
			if m, isMap := entry.(map[string]any); isMap {
				levels = append(levels, m)
			}
		}
	}

	for _, entry := range levels {
		l, lok := numeric(entry["level"])
		f, fok := numeric(entry["free_spots"])
		if !lok || !fok || f <= 0 {
			continue
		}

		switch a.strategy {
		case StrategyLowestLevel:
			if !ok || int(l) < level {
				level, free, ok = int(l), f, true
			}
		default:
			if !ok || f > free {
				level, free, ok = int(l), f, true
			}
		}
	}

	return level, free, ok
}
