package agent

import (
	"fmt"

	"github.com/hupe1980/parkmesh/core"
)

// GuidanceAgent coordinates the trip to the selected facility: it derives a
// route, folds live congestion into the ETA and forwards arrival context to
// the access agent.
type GuidanceAgent struct {
	Base
}

// NewGuidanceAgent constructs the on-route guidance agent.
func NewGuidanceAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *GuidanceAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              GuidanceAgentID,
		Kinds:           []core.TaskKind{core.TaskNavigate},
		Tools:           []string{"traffic"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Guides the driver to the selected facility with traffic-adjusted ETA.",
	}

	return &GuidanceAgent{Base: newBase(cap, solver, tools, opts)}
}

// Execute implements core.Agent. The selected facility may arrive in the
// task payload or as a cue from the search agent; the payload wins.
func (a *GuidanceAgent) Execute(inv *core.Invocation) (map[string]any, error) {
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
		return nil, fmt.Errorf("navigate task carries no facility")
	}

	origin, _ := inv.Task.Payload["origin"].(string)
	route := fmt.Sprintf("%s -> %s", origin, facility)

	traffic, err := a.invokeTool(inv, "traffic", map[string]any{"route": route})
	if err != nil {
		return nil, err
	}

	baseMinutes := 12.0
	if v, ok := numeric(inv.Task.Payload["base_eta_minutes"]); ok {
		baseMinutes = v
	}

	delay, _ := numeric(traffic["delay_minutes"])

	out := map[string]any{
		"facility":    facility,
		"route":       route,
		"congestion":  traffic["congestion"],
		"eta_minutes": baseMinutes + delay,
	}

	inv.Cue(AccessAgentID, map[string]any{
		"facility":    facility,
		"eta_minutes": out["eta_minutes"],
	})

	return out, nil
}
