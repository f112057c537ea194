package core

// Pattern selects the cooperation formula applied to a run.
type Pattern string

const (
	// PatternAugmentative partitions work across agents and concatenates
	// the non-failed sub-results.
	PatternAugmentative Pattern = "augmentative"
	// PatternIntegrative executes a staged chain where later stages consume
	// the merged structured output of their predecessors.
	PatternIntegrative Pattern = "integrative"
	// PatternDebative dispatches the identical task to independent agent
	// instances and selects the best-scoring candidate.
	PatternDebative Pattern = "debative"
)

// Assignment binds one sub-task to one agent for fan-out patterns.
// Priority mirrors the agent's declared priority for deterministic debative
// tie-breaking without a registry lookup at resolution time.
type Assignment struct {
	AgentID  string
	Task     Task
	Priority int
}

// Stage is one step of an integrative chain. A stage may only start after
// every stage named in DependsOn has completed successfully; MergeFunc names
// the registered function building the stage input from upstream outputs.
type Stage struct {
	Name      string
	AgentID   string
	Task      Task
	DependsOn []string
	MergeFunc string
}

// Plan is the cooperation plan produced at planning time: the selected
// pattern, the agent assignments and the pattern-specific identifiers
// (merge functions per stage for integrative, scoring rule for debative,
// dedupe key for augmentative).
type Plan struct {
	Pattern     Pattern
	Assignments []Assignment
	Stages      []Stage
	ScoreRule   string
	DedupeKey   string
	Limit       int
	// MinSuccesses is the minimum number of augmentative branches that must
	// succeed before the run counts as (partially) successful. Zero applies
	// the conservative default: fail only if all branches fail.
	MinSuccesses int
}
