package core

import (
	"fmt"
	"sort"
)

// Registry is the process-wide, read-only index of registered agents. It is
// constructed once at startup and never mutated afterwards, making
// unsynchronized concurrent reads safe.
type Registry struct {
	byID   map[string]Agent
	byKind map[TaskKind][]Agent
	ids    []string
}

// NewRegistry builds a registry from the given agents. It rejects duplicate
// ids, empty ids and capabilities referencing unknown task kinds. Eligible
// agents per kind are ordered by declared priority (ties by id) so planning
// and tie-breaking are deterministic.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]Agent, len(agents)),
		byKind: make(map[TaskKind][]Agent),
	}
	for _, a := range agents {
		cap := a.Capability()
		if cap.ID == "" {
			return nil, fmt.Errorf("agent with empty id")
		}
		if _, exists := r.byID[cap.ID]; exists {
			return nil, fmt.Errorf("duplicate agent id %q", cap.ID)
		}
		if len(cap.Kinds) == 0 {
			return nil, fmt.Errorf("agent %q declares no task kinds", cap.ID)
		}
		for _, k := range cap.Kinds {
			if !k.Valid() {
				return nil, fmt.Errorf("agent %q declares unknown task kind %q", cap.ID, k)
			}
		}
		r.byID[cap.ID] = a
		r.ids = append(r.ids, cap.ID)
		for _, k := range cap.Kinds {
			r.byKind[k] = append(r.byKind[k], a)
		}
	}
	sort.Strings(r.ids)
	for k := range r.byKind {
		agents := r.byKind[k]
		sort.SliceStable(agents, func(i, j int) bool {
			ci, cj := agents[i].Capability(), agents[j].Capability()
			if ci.Priority != cj.Priority {
				return ci.Priority < cj.Priority
			}
			return ci.ID < cj.ID
		})
	}
	return r, nil
}

// Get returns the agent registered under id.
func (r *Registry) Get(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// EligibleFor returns the agents declaring support for kind, ordered by
// priority. The returned slice is a copy.
func (r *Registry) EligibleFor(kind TaskKind) []Agent {
	agents := r.byKind[kind]
	out := make([]Agent, len(agents))
	copy(out, agents)
	return out
}

// IDs returns all registered agent ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.byID) }
