// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing core model objects (tasks, fake
// agents, constraint sets) and asserting behaviors. These helpers are
// intentionally minimal and avoid adding third-party dependencies. They are
// not intended for production usage.
package testutil

import (
	"sync"
	"time"

	"github.com/hupe1980/parkmesh/core"
)

// TaskBuilder provides a fluent helper for constructing tasks in tests.
// Example:
//
//	task := NewTaskBuilder(core.TaskSearch).Payload("zone", "downtown").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TaskBuilder struct {
	task core.Task
}

// NewTaskBuilder creates a builder for the given kind with a fresh id and
// empty payload.
func NewTaskBuilder(kind core.TaskKind) *TaskBuilder {
	return &TaskBuilder{task: core.NewTask(kind, map[string]any{})}
}

// ID overrides the auto-generated task ID (chainable). Use mainly in tests
// where determinism matters.
func (b *TaskBuilder) ID(id string) *TaskBuilder { b.task.ID = id; return b }

// Payload sets one payload key (chainable).
func (b *TaskBuilder) Payload(key string, value any) *TaskBuilder {
	b.task.Payload[key] = value
	return b
}

// Hard appends a hard constraint (chainable).
func (b *TaskBuilder) Hard(key string, op core.Op, value any) *TaskBuilder {
	b.task.Constraints.Hard = append(b.task.Constraints.Hard, core.Constraint{Key: key, Op: op, Value: value})
	return b
}

// Soft appends a soft constraint (chainable).
func (b *TaskBuilder) Soft(key string, weight float64, prefer core.Preference, scale float64) *TaskBuilder {
	b.task.Constraints.Soft = append(b.task.Constraints.Soft, core.SoftConstraint{
		Key: key, Weight: weight, Prefer: prefer, Scale: scale,
	})
	return b
}

// Deadline sets an absolute deadline (chainable).
func (b *TaskBuilder) Deadline(t time.Time) *TaskBuilder { b.task.Deadline = t; return b }

// Build returns the assembled task.
func (b *TaskBuilder) Build() core.Task { return b.task }

// FakeAgent is a scripted core.Agent for orchestration tests. Execute runs
// the configured function, or echoes the task payload when none is set.
type FakeAgent struct {
	Cap core.Capability
	Fn  func(inv *core.Invocation) (map[string]any, error)

	mu sync.Mutex
	// Invocations records every invocation passed to Execute.
	Invocations []*core.Invocation
}

// NewFakeAgent creates a fake agent handling the given kinds.
func NewFakeAgent(id string, kinds ...core.TaskKind) *FakeAgent {
	return &FakeAgent{Cap: core.Capability{ID: id, Kinds: kinds, GuardrailPolicy: "default"}}
}

// WithFn sets the scripted execution function (chainable).
func (f *FakeAgent) WithFn(fn func(inv *core.Invocation) (map[string]any, error)) *FakeAgent {
	f.Fn = fn
	return f
}

// WithPriority sets the debative tie-break priority (chainable).
func (f *FakeAgent) WithPriority(p int) *FakeAgent { f.Cap.Priority = p; return f }

// WithMaxConcurrency sets the concurrency limit (chainable).
func (f *FakeAgent) WithMaxConcurrency(n int) *FakeAgent { f.Cap.MaxConcurrency = n; return f }

// Capability implements core.Agent.
func (f *FakeAgent) Capability() core.Capability { return f.Cap }

// Execute implements core.Agent.
func (f *FakeAgent) Execute(inv *core.Invocation) (map[string]any, error) {
	f.mu.Lock()
	f.Invocations = append(f.Invocations, inv)
	f.mu.Unlock()
	if f.Fn != nil {
		return f.Fn(inv)
	}
	return inv.Task.Payload, nil
}
