package core

import (
	"context"
	"time"
)

// ToolInvoker is the uniform contract through which agents reach every
// external capability (maps, traffic, weather, payment, access hardware).
// The core never encodes provider-specific protocol details.
type ToolInvoker interface {
	Invoke(ctx context.Context, toolID string, req map[string]any, timeout time.Duration) (map[string]any, error)
}

// Solver is the opaque per-agent reasoning step. Implementations translate
// the task plus accumulated cues into a structured output or a typed failure.
type Solver interface {
	Solve(ctx context.Context, agentID string, task Task, cues []Cue) (map[string]any, error)
}

// PreferenceStore reads and writes per-session user preferences. The
// orchestrator reads at planning time to bias agent selection and constraint
// weighting; feedback write-back is outside the core.
type PreferenceStore interface {
	Get(ctx context.Context, sessionID string) (map[string]any, error)
	Put(ctx context.Context, sessionID string, prefs map[string]any) error
}
