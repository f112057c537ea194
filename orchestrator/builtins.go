package orchestrator

import (
	"sort"

	"github.com/hupe1980/parkmesh/resolve"
)

// registerBuiltins installs the merge functions, scoring rules and dedupe
// keys the planner references by identifier. Applications may register
// additional ones on the resolver before submitting runs.
func registerBuiltins(r *resolve.Resolver) {
	r.RegisterKeyFunc(KeyByName, func(item map[string]any) string {
		name, _ := item["name"].(string)
		return name
	})

	// Micro-routing debate: more free spots on the chosen level wins.
	r.RegisterScoreRule(RuleMostFree, func(a, b map[string]any) int {
		return compareNumeric(a["free_spots"], b["free_spots"])
	})

	// Generic debate over candidates carrying a precomputed score.
	r.RegisterScoreRule(RuleBestScore, func(a, b map[string]any) int {
		return compareNumeric(a["score"], b["score"])
	})

	// Overlay merges upstream stage outputs in sorted stage-name order so
	// later stages deterministically override earlier keys.
	r.RegisterMerge(MergeOverlay, func(upstream map[string]map[string]any) (map[string]any, error) {
		names := make([]string, 0, len(upstream))
		for name := range upstream {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make(map[string]any)
		for _, name := range names {
			for k, v := range upstream[name] {
				out[k] = v
			}
		}
		return out, nil
	})

	// carry_facility lifts the facility chosen upstream into the next
	// stage's input without dragging the rest of the payload along.
	r.RegisterMerge(MergeFacilityOf, func(upstream map[string]map[string]any) (map[string]any, error) {
		out := make(map[string]any)
		for _, payload := range upstream {
			if facility, ok := payload["facility"]; ok {
				out["facility"] = facility
			}
			if eta, ok := payload["eta_minutes"]; ok {
				out["eta_minutes"] = eta
			}
		}
		return out, nil
	})
}

// compareNumeric ranks higher values ahead: negative when a wins.
func compareNumeric(a, b any) int {
	av, aok := asFloat(a)
	bv, bok := asFloat(b)
	switch {
	case aok && bok && av > bv:
		return -1
	case aok && bok && av < bv:
		return 1
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
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
