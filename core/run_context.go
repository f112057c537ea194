package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RunContext is the mutable accumulator owned exclusively by one in-flight
// run. It holds the append-only trace (totally ordered by a monotonic
// sequence counter) and the cues received so far, keyed by (source, target).
// No two concurrent runs ever share a RunContext.
type RunContext struct {
	ctx   context.Context
	runID string
	task  Task

	mu     sync.Mutex
	seq    int64
	trace  []TraceEntry
	cues   map[string]map[string][]Cue // target -> source -> FIFO
	sealed bool
}

// NewRunContext creates the context for one run of the given top-level task.
func NewRunContext(ctx context.Context, runID string, task Task) *RunContext {
	return &RunContext{
		ctx:   ctx,
		runID: runID,
		task:  task,
		cues:  make(map[string]map[string][]Cue),
	}
}

// Context returns the cancellation context governing the run.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// RunID returns the run identifier.
func (rc *RunContext) RunID() string { return rc.runID }

// Task returns the top-level task of the run.
func (rc *RunContext) Task() Task { return rc.task }

// Append records a trace entry, assigning the next sequence number. Appends
// after the run reached a terminal state are ignored so late tool completions
// cannot mutate a sealed trace.
func (rc *RunContext) Append(kind EventKind, from, to, taskID, note string) TraceEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.sealed {
		return TraceEntry{}
	}
	rc.seq++
	e := TraceEntry{
		Seq:    rc.seq,
		Time:   time.Now().UTC(),
		Kind:   kind,
		From:   from,
		To:     to,
		TaskID: taskID,
		Note:   note,
	}
	rc.trace = append(rc.trace, e)
	return e
}

// RecordCue appends a delivered cue to the accumulator.
func (rc *RunContext) RecordCue(c Cue) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.sealed {
		return
	}
	bySource, ok := rc.cues[c.Target]
	if !ok {
		bySource = make(map[string][]Cue)
		rc.cues[c.Target] = bySource
	}
	bySource[c.Source] = append(bySource[c.Source], c)
}

// CuesFor returns the cues accumulated for a target agent: per-source FIFO
// order preserved, sources iterated in sorted order so repeated runs see an
// identical sequence.
func (rc *RunContext) CuesFor(target string) []Cue {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	bySource := rc.cues[target]
	if len(bySource) == 0 {
		return nil
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	var out []Cue
	for _, s := range sources {
		out = append(out, bySource[s]...)
	}
	return out
}

// Trace returns a copy of the trace recorded so far.
func (rc *RunContext) Trace() []TraceEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]TraceEntry, len(rc.trace))
	copy(out, rc.trace)
	return out
}

// Seal marks the run terminal: the cue accumulator is discarded and further
// appends become no-ops. The trace stays readable for audit.
func (rc *RunContext) Seal() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.sealed = true
	rc.cues = nil
}

// Sealed reports whether the run reached a terminal state.
func (rc *RunContext) Sealed() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.sealed
}
