package reasoning

import (
	"context"
	"sync"

	"github.com/hupe1980/parkmesh/core"
)

// MockSolver is a deterministic core.Solver for tests and offline examples.
// Responses are registered per agent; unregistered agents receive a minimal
// echo of the task so pipelines keep flowing without provider access.
type MockSolver struct {
	mu        sync.RWMutex
	responses map[string]map[string]any
	fn        func(agentID string, task core.Task, cues []core.Cue) (map[string]any, error)
}

// NewMockSolver creates an empty MockSolver.
func NewMockSolver() *MockSolver {
	return &MockSolver{
		responses: make(map[string]map[string]any),
	}
}

// AddResponse registers a canned response for the given agent. The map is
// cloned on registration and again on delivery so callers cannot alias it.
func (m *MockSolver) AddResponse(agentID string, response map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[agentID] = cloneMap(response)
}

// SetFunc installs a function that overrides all canned responses.
func (m *MockSolver) SetFunc(fn func(agentID string, task core.Task, cues []core.Cue) (map[string]any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fn = fn
}

// Solve implements core.Solver.
func (m *MockSolver) Solve(ctx context.Context, agentID string, task core.Task, cues []core.Cue) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	fn := m.fn
	response, ok := m.responses[agentID]
	m.mu.RUnlock()

	if fn != nil {
		return fn(agentID, task, cues)
	}

	if ok {
		return cloneMap(response), nil
	}

	return map[string]any{
		"agent_id":  agentID,
		"task_kind": string(task.Kind),
		"cue_count": len(cues),
	}, nil
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
