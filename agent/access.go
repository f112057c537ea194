package agent

import (
	"fmt"

	"github.com/hupe1980/parkmesh/core"
)

// AccessAgent performs contactless facility entry: it validates the digital
// credential against the gate and hands arrival context to micro-routing.
type AccessAgent struct {
	Base
}

// NewAccessAgent constructs the access agent.
func NewAccessAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *AccessAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              AccessAgentID,
		Kinds:           []core.TaskKind{core.TaskAccess},
		Tools:           []string{"gate_control"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Validates digital credentials for contactless facility entry.",
	}

	return &AccessAgent{Base: newBase(cap, solver, tools, opts)}
}

// Execute implements core.Agent.
func (a *AccessAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	credential, _ := inv.Task.Payload["credential"].(string)
	if credential == "" {
		return nil, fmt.Errorf("access task carries no credential")
	}

	facility, _ := inv.Task.Payload["facility"].(string)
	if facility == "" {
		for _, cue := range inv.Cues {
			if name, ok := cue.Data["facility"].(string); ok && name != "" {
				facility = name
				break
			}
		}
	}

	gate, err := a.invokeTool(inv, "gate_control", map[string]any{
		"credential": credential,
		"facility":   facility,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"facility": facility,
		"granted":  gate["granted"],
		"gate":     gate["gate"],
		"method":   gate["method"],
	}
	if eta, ok := numeric(inv.Task.Payload["eta_minutes"]); ok {
		out["eta_minutes"] = eta
	}

	inv.Cue(MicroRoutingAgentID, map[string]any{
		"facility": facility,
		"gate":     gate["gate"],
	})

	return out, nil
}
