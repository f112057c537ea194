package agent

import (
	"github.com/hupe1980/parkmesh/core"
)

// InteractionAgent interprets user-facing requests, exposes the session's
// preferences to the rest of the mesh and seeds the search with early
// context. It is the conversational entry point of the parking workflow.
type InteractionAgent struct {
	Base
}

// NewInteractionAgent constructs the interaction agent.
func NewInteractionAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *InteractionAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              InteractionAgentID,
		Kinds:           []core.TaskKind{core.TaskInteract},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Interprets user requests, applies session preferences and coordinates the specialized agents.",
	}

	return &InteractionAgent{Base: newBase(cap, solver, tools, opts)}
}

// Execute implements core.Agent. It resolves the effective preferences for
// the request, asks the solver for a user-facing reply, and cues the search
// agent with destination context so the search can start well-informed.
func (a *InteractionAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	if err := inv.Context.Err(); err != nil {
		return nil, err
	}

	destination, _ := inv.Task.Payload["destination"].(string)

	out := map[string]any{
		"destination": destination,
		"preferences": inv.Preferences,
	}

	if reply := a.solve(inv); reply != nil {
		if text, ok := reply["text"].(string); ok && text != "" {
			out["reply"] = text
		} else {
			out["reply"] = reply
		}
	}

	if destination != "" {
		inv.Cue(SearchAgentID, map[string]any{
			"destination": destination,
			"preferences": inv.Preferences,
		})
	}

	return out, nil
}
