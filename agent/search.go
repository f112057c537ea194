package agent

import (
	"fmt"
	"sort"

	"github.com/hupe1980/parkmesh/core"
)

// SearchAgent finds optimal or near-optimal parking for the requested zone.
// It treats the problem as multi-criteria constrained optimization: hard
// constraints disqualify, soft constraints rank, and session preferences
// tighten both before evaluation.
type SearchAgent struct {
	Base
	limit int
}

// NewSearchAgent constructs the informative search agent.
func NewSearchAgent(solver core.Solver, tools core.ToolInvoker, optFns ...func(o *Options)) *SearchAgent {
	opts := Options{GuardrailPolicy: DefaultGuardrailPolicy}
	for _, fn := range optFns {
		fn(&opts)
	}

	cap := core.Capability{
		ID:              SearchAgentID,
		Kinds:           []core.TaskKind{core.TaskSearch},
		Tools:           []string{"parking_data", "geo_distance"},
		GuardrailPolicy: opts.GuardrailPolicy,
		Description:     "Formulates parking search as multi-criteria optimization over hard and soft constraints.",
	}

	return &SearchAgent{Base: newBase(cap, solver, tools, opts), limit: 5}
}

// Execute implements core.Agent. It lists the zone's facilities, annotates
// each with walking distance to the destination, drops candidates violating
// any hard constraint and returns the remainder ranked by weighted
// soft-constraint score.
func (a *SearchAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	zone, _ := inv.Task.Payload["zone"].(string)

	listing, err := a.invokeTool(inv, "parking_data", map[string]any{"zone": zone})
	if err != nil {
		return nil, err
	}

	candidates := itemMaps(listing["items"])
	constraints := constraintsWithPreferenceBias(inv.Task.Constraints, inv.Preferences)

	destLat, latOK := numeric(inv.Task.Payload["dest_lat"])
	destLng, lngOK := numeric(inv.Task.Payload["dest_lng"])

	type scored struct {
		item  map[string]any
		score float64
	}

	var ranked []scored

	for _, c := range candidates {
		if latOK && lngOK {
			if meters, derr := a.walkingDistance(inv, c, destLat, destLng); derr == nil {
				c["walking_distance_m"] = meters
			}
		}

		if !constraints.HardSatisfied(c) {
			continue
		}

		ranked = append(ranked, scored{item: c, score: constraints.Score(c)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		// Stable order for equal scores.
		return fmt.Sprint(ranked[i].item["name"]) < fmt.Sprint(ranked[j].item["name"])
	})

	limit := a.limit
	if n, ok := numeric(inv.Task.Payload["limit"]); ok && int(n) > 0 {
		limit = int(n)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	items := make([]map[string]any, 0, len(ranked))
	for _, s := range ranked {
		s.item["score"] = s.score
		items = append(items, s.item)
	}

	out := map[string]any{
		"items": items,
		"zone":  zone,
		"total": len(items),
	}

	if summary := a.solve(inv); summary != nil {
		if text, ok := summary["text"].(string); ok && text != "" {
			out["summary"] = text
		}
	}

	if len(items) > 0 {
		inv.Cue(GuidanceAgentID, map[string]any{
			"facility": items[0]["name"],
			"lat":      items[0]["lat"],
			"lng":      items[0]["lng"],
		})
	}

	return out, nil
}

func (a *SearchAgent) walkingDistance(inv *core.Invocation, candidate map[string]any, destLat, destLng float64) (float64, error) {
	lat, latOK := numeric(candidate["lat"])
	lng, lngOK := numeric(candidate["lng"])
	if !latOK || !lngOK {
		return 0, fmt.Errorf("candidate %v has no coordinates", candidate["name"])
	}

	resp, err := a.invokeTool(inv, "geo_distance", map[string]any{
		"origin_lat": lat,
		"origin_lng": lng,
		"dest_lat":   destLat,
		"dest_lng":   destLng,
	})
	if err != nil {
		return 0, err
	}

	meters, ok := numeric(resp["meters"])
	if !ok {
		return 0, fmt.Errorf("geo_distance returned no meters value")
	}

	return meters, nil
}

// constraintsWithPreferenceBias folds well-known session preferences into
// the task's constraint set. Requirements become hard constraints;
// priorities become weighted soft constraints over the candidate fields the
// facility listings expose.
func constraintsWithPreferenceBias(cs core.Constraints, prefs map[string]any) core.Constraints {
	out := core.Constraints{
		Hard: append([]core.Constraint(nil), cs.Hard...),
		Soft: append([]core.SoftConstraint(nil), cs.Soft...),
	}

	switch prefs["ev_charging"] {
	case "required", "fast_required":
		out.Hard = append(out.Hard, core.Constraint{Key: "ev_charging", Op: core.OpExists})
	}

	if prefs["accessibility"] == "required" || prefs["wide_bays"] == "required" {
		out.Hard = append(out.Hard, core.Constraint{Key: "accessibility", Op: core.OpExists})
	}

	if prefs["price_priority"] == "highest" {
		out.Soft = append(out.Soft, core.SoftConstraint{
			Key: "price_per_half_hour", Weight: 2, Prefer: core.PreferLow, Scale: 10,
		})
	}

	if prefs["distance"] == "minimal" || prefs["entrance_proximity"] == "critical" {
		out.Soft = append(out.Soft, core.SoftConstraint{
			Key: "walking_distance_m", Weight: 2, Prefer: core.PreferLow, Scale: 2000,
		})
	}

	if prefs["rating"] == "high" {
		out.Soft = append(out.Soft, core.SoftConstraint{
			Key: "rating", Weight: 1, Prefer: core.PreferHigh, Scale: 5,
		})
	}

	return out
}

func itemMaps(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			out = append(out, cloneItem(item))
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, raw := range items {
			if m, ok := raw.(map[string]any); ok {
				out = append(out, cloneItem(m))
			}
		}
		return out
	default:
		return nil
	}
}

func cloneItem(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
