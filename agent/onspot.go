package agent

import (
	"fmt"

	"github.com/hupe1980/parkmesh/core"
)

// OnSpotAgent manages the parked phase: EV charging activation and status,
// plus security monitoring arming.
type OnSpotAgent struct {
	Base
}

// NewOnSpotAgent constructs the on-spot monitoring agent.
func NewOnSpotAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *OnSpotAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              OnSpotAgentID,
		Kinds:           []core.TaskKind{core.TaskMonitor},
		Tools:           []string{"occupancy"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Monitors the parked vehicle: EV charging status and security alerting.",
	}

	return &OnSpotAgent{Base: newBase(cap, solver, tools, opts)}
}

// Execute implements core.Agent. Charging is activated when the session's
// preferences require it or the task asks for it explicitly.
func (a *OnSpotAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	facility, _ := inv.Task.Payload["facility"].(string)
	if facility == "" {
		return nil, fmt.Errorf("monitor task carries no facility")
	}

	// The occupancy report doubles as a liveness probe for the facility's
	// sensor feed.
	if _, err := a.invokeTool(inv, "occupancy", map[string]any{"facility": facility}); err != nil {
		return nil, err
	}

	charging := "inactive"
	wantsCharging, _ := inv.Task.Payload["ev_charging"].(bool)
	switch inv.Preferences["ev_charging"] {
	case "required", "fast_required":
		wantsCharging = true
	}
	if wantsCharging {
		charging = "active"
	}

	return map[string]any{
		"facility":       facility,
		"charging":       charging,
		"security_armed": true,
		"alerts":         []any{},
	}, nil
}
