package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies one of the closed set of task categories the system
// routes. The set is fixed at compile time; runtime inputs are validated via
// ParseTaskKind so dispatch never falls back to open-ended string matching.
type TaskKind string

const (
	// TaskSearch finds and ranks parking candidates for a destination.
	TaskSearch TaskKind = "search"
	// TaskNavigate guides the user to a selected parking location.
	TaskNavigate TaskKind = "navigate"
	// TaskAccess performs contactless entry into a parking facility.
	TaskAccess TaskKind = "access"
	// TaskMicroRoute navigates within a facility to the assigned spot.
	TaskMicroRoute TaskKind = "micro_route"
	// TaskMonitor watches the parked vehicle (charging, security, alerts).
	TaskMonitor TaskKind = "monitor"
	// TaskDepart manages session expiry, payment and the walk back.
	TaskDepart TaskKind = "depart"
	// TaskInteract handles conversational coordination with the user.
	TaskInteract TaskKind = "interact"
)

// Kinds returns all known task kinds in declaration order.
func Kinds() []TaskKind {
	return []TaskKind{TaskSearch, TaskNavigate, TaskAccess, TaskMicroRoute, TaskMonitor, TaskDepart, TaskInteract}
}

// Valid reports whether the kind belongs to the closed set.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskSearch, TaskNavigate, TaskAccess, TaskMicroRoute, TaskMonitor, TaskDepart, TaskInteract:
		return true
	default:
		return false
	}
}

// ParseTaskKind converts an external string into a TaskKind, rejecting
// anything outside the closed set.
func ParseTaskKind(s string) (TaskKind, error) {
	k := TaskKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown task kind %q", s)
	}
	return k, nil
}

// Task is the unit of work passed between agents. A task belongs to exactly
// one in-flight run; sub-tasks reference their parent via Parent. Payload is
// kind-specific structured data; Constraints separate hard requirements from
// soft ranking preferences.
type Task struct {
	ID          string
	Kind        TaskKind
	Payload     map[string]any
	Constraints Constraints
	Deadline    time.Time
	Parent      string // parent task id, empty for top-level
}

// NewTask creates a top-level task with a generated id.
func NewTask(kind TaskKind, payload map[string]any) Task {
	return Task{ID: NewID(), Kind: kind, Payload: payload}
}

// Sub derives a child task inheriting constraints and deadline from the
// receiver. The child carries its own id and references the parent.
func (t Task) Sub(kind TaskKind, payload map[string]any) Task {
	return Task{
		ID:          NewID(),
		Kind:        kind,
		Payload:     payload,
		Constraints: t.Constraints,
		Deadline:    t.Deadline,
		Parent:      t.ID,
	}
}

// NewID generates a new unique identifier for tasks, runs and trace records.
func NewID() string { return uuid.NewString() }
