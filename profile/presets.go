package profile

// Preset names for the built-in driver profiles.
const (
	PresetCommuterSaver        = "commuter_saver"
	PresetEfficientMultitasker = "efficient_multitasker"
	PresetCreativeWanderer     = "creative_wanderer"
	PresetIndependentElder     = "independent_elder"
	PresetGreenProfessional    = "green_professional"
)

// Preset describes a built-in driver profile.
type Preset struct {
	Name        string
	Description string
	Preferences map[string]any
}

var presets = map[string]Preset{
	PresetCommuterSaver: {
		Name:        "Commuter Saver",
		Description: "Drives an EV on a tight budget. Prioritizes lowest half-hour rate and a working charger.",
		Preferences: map[string]any{
			"price_priority": "highest",
			"ev_charging":    "required",
			"walk_distance":  "flexible",
			"amenities":      "irrelevant",
		},
	},
	PresetEfficientMultitasker: {
		Name:        "Efficient Multitasker",
		Description: "Values time over money. Seeks closest, top-reviewed space with valet service.",
		Preferences: map[string]any{
			"time_priority": "highest",
			"distance":      "minimal",
			"rating":        "high",
			"valet_service": "preferred",
			"price":         "flexible",
		},
	},
	PresetCreativeWanderer: {
		Name:        "Creative Wanderer",
		Description: "Wants memorable, off-beat location in artsy, less-touristy area.",
		Preferences: map[string]any{
			"atmosphere":    "quirky",
			"area_type":     "artsy",
			"tourist_level": "low",
			"price":         "flexible",
			"ev_charging":   "optional",
		},
	},
	PresetIndependentElder: {
		Name:        "Independent Elder",
		Description: "Uses wheelchair and avoids crowds. Requires accessible ground-level space.",
		Preferences: map[string]any{
			"accessibility":      "required",
			"crowd_level":        "low",
			"ground_level":       "required",
			"wide_bays":          "required",
			"entrance_proximity": "critical",
		},
	},
	PresetGreenProfessional: {
		Name:        "Green Professional",
		Description: "Business traveler with electric company car. Needs reliable fast charger.",
		Preferences: map[string]any{
			"ev_charging": "fast_required",
			"reliability": "critical",
			"location":    "central",
			"lighting":    "good",
			"price":       "mid_range",
		},
	},
}

// Presets returns the built-in profiles keyed by preset name. The returned
// map and nested preference maps are copies.
func Presets() map[string]Preset {
	out := make(map[string]Preset, len(presets))
	for name, p := range presets {
		p.Preferences = clonePrefs(p.Preferences)
		out[name] = p
	}

	return out
}

// PresetPreferences returns a copy of the named preset's preferences, or
// false if the preset does not exist.
func PresetPreferences(name string) (map[string]any, bool) {
	p, ok := presets[name]
	if !ok {
		return nil, false
	}

	return clonePrefs(p.Preferences), true
}

func clonePrefs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
