package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type capAgent struct{ cap Capability }

func (a capAgent) Capability() Capability { return a.cap }
func (a capAgent) Execute(inv *Invocation) (map[string]any, error) {
	return inv.Task.Payload, nil
}

func TestNewRegistry_RejectsInvalidCapabilities(t *testing.T) {
	_, err := NewRegistry(capAgent{cap: Capability{ID: "", Kinds: []TaskKind{TaskSearch}}})
	assert.Error(t, err)

	_, err = NewRegistry(
		capAgent{cap: Capability{ID: "a", Kinds: []TaskKind{TaskSearch}}},
		capAgent{cap: Capability{ID: "a", Kinds: []TaskKind{TaskNavigate}}},
	)
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRegistry(capAgent{cap: Capability{ID: "a", Kinds: []TaskKind{TaskKind("teleport")}}})
	assert.ErrorContains(t, err, "unknown task kind")

	_, err = NewRegistry(capAgent{cap: Capability{ID: "a"}})
	assert.ErrorContains(t, err, "no task kinds")
}

func TestRegistry_EligibleForOrdering(t *testing.T) {
	r, err := NewRegistry(
		capAgent{cap: Capability{ID: "bravo", Kinds: []TaskKind{TaskMicroRoute}, Priority: 2}},
		capAgent{cap: Capability{ID: "alpha", Kinds: []TaskKind{TaskMicroRoute}, Priority: 2}},
		capAgent{cap: Capability{ID: "zulu", Kinds: []TaskKind{TaskMicroRoute}, Priority: 1}},
	)
	assert.NoError(t, err)

	eligible := r.EligibleFor(TaskMicroRoute)
	assert.Len(t, eligible, 3)
	assert.Equal(t, "zulu", eligible[0].Capability().ID)
	assert.Equal(t, "alpha", eligible[1].Capability().ID)
	assert.Equal(t, "bravo", eligible[2].Capability().ID)

	assert.Empty(t, r.EligibleFor(TaskDepart))
	assert.Equal(t, []string{"alpha", "bravo", "zulu"}, r.IDs())
}
