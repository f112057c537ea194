package agent

import (
	"fmt"

	"github.com/hupe1980/parkmesh/core"
)

// DepartureAgent closes out a parking session: it settles the charge and
// hands the driver walking directions back to the vehicle.
type DepartureAgent struct {
	Base
}

// NewDepartureAgent constructs the departure agent.
func NewDepartureAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *DepartureAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              DepartureAgentID,
		Kinds:           []core.TaskKind{core.TaskDepart},
		Tools:           []string{"payment", "geo_distance"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Settles the session charge and guides the driver back to the vehicle.",
	}

	return &DepartureAgent{Base: newBase(cap, solver, tools, opts)}
}

// Execute implements core.Agent. The session charge derives from the parked
// minutes and the facility's half-hour rate; explicit amounts win.
func (a *DepartureAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	amount, ok := numeric(inv.Task.Payload["amount"])
	if !ok {
		minutes, mok := numeric(inv.Task.Payload["session_minutes"])
		rate, rok := numeric(inv.Task.Payload["price_per_half_hour"])
		if !mok || !rok {
			return nil, fmt.Errorf("depart task carries neither amount nor session_minutes and rate")
		}
		// Billing rounds any started half hour up to a full one.
		halfHours := float64(int(minutes / 30))
		if minutes > halfHours*30 {
			halfHours++
		}
		amount = halfHours * rate
	}

	method, _ := inv.Task.Payload["method"].(string)

	receipt, err := a.invokeTool(inv, "payment", map[string]any{
		"amount": amount,
		"method": method,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"transaction_id": receipt["transaction_id"],
		"status":         receipt["status"],
		"amount":         receipt["amount"],
		"method":         receipt["method"],
	}

	uLat, uok1 := numeric(inv.Task.Payload["user_lat"])
	uLng, uok2 := numeric(inv.Task.Payload["user_lng"])
	vLat, vok1 := numeric(inv.Task.Payload["vehicle_lat"])
	vLng, vok2 := numeric(inv.Task.Payload["vehicle_lng"])
	if uok1 && uok2 && vok1 && vok2 {
		dist, derr := a.invokeTool(inv, "geo_distance", map[string]any{
			"origin_lat": uLat,
			"origin_lng": uLng,
			"dest_lat":   vLat,
			"dest_lng":   vLng,
		})
		if derr == nil {
			out["walk_back_m"] = dist["meters"]
		}
	}

	return out, nil
}
