package router

import (
	"sort"
	"sync"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
	"github.com/hupe1980/parkmesh/telemetry"
)

// CueBusOptions configures a run-scoped cue bus.
type CueBusOptions struct {
	// Buffer is the capacity of each (source, target) channel. A full
	// buffer drops further cues from that source with a logged warning.
	Buffer int
	Logger logging.Logger

	// Instruments counts queued and dropped cues. Nil disables metrics.
	Instruments *telemetry.Instruments
}

// CueBus delivers asynchronous, read-only context between agents of one run.
// Delivery is at-most-once and per-source FIFO: a cue sent before the target
// starts is visible inside the target's invocation; a cue arriving after the
// target completed (or started) is dropped with a warning and never affects
// the run status. The bus is torn down when the run reaches a terminal
// state so cue buffers cannot leak across runs.
type CueBus struct {
	run         *core.RunContext
	buffer      int
	logger      logging.Logger
	instruments *telemetry.Instruments

	mu        sync.Mutex
	pending   map[string]map[string]chan core.Cue // target -> source -> FIFO channel
	started   map[string]bool
	completed map[string]bool
	closed    bool
}

// NewCueBus creates a bus scoped to the given run.
func NewCueBus(run *core.RunContext, optFns ...func(o *CueBusOptions)) *CueBus {
	opts := CueBusOptions{Buffer: 8, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	return &CueBus{
		run:         run,
		buffer:      opts.Buffer,
		logger:      opts.Logger,
		instruments: opts.Instruments,
		pending:     make(map[string]map[string]chan core.Cue),
		started:     make(map[string]bool),
		completed:   make(map[string]bool),
	}
}

// Cue enqueues context for a target agent. It never blocks the caller and
// never returns an error: undeliverable cues are dropped and traced.
func (b *CueBus) Cue(from, to string, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.drop(from, to, "run terminal")
		return
	}
	if b.completed[to] {
		b.drop(from, to, "target already completed")
		return
	}
	if b.started[to] {
		b.drop(from, to, "target already started")
		return
	}

	bySource, ok := b.pending[to]
	if !ok {
		bySource = make(map[string]chan core.Cue)
		b.pending[to] = bySource
	}
	ch, ok := bySource[from]
	if !ok {
		ch = make(chan core.Cue, b.buffer)
		bySource[from] = ch
	}
	select {
	case ch <- core.Cue{Source: from, Target: to, Data: data}:
		b.run.Append(core.EventCue, from, to, "", "queued")
		if b.instruments != nil {
			b.instruments.RecordCue(b.run.Context(), from, to)
		}
	default:
		b.drop(from, to, "buffer full")
	}
}

// Collect marks the target's invocation as started and returns every cue
// queued for it so far, per-source FIFO with sources in sorted order. The
// cues are also recorded in the run context accumulator.
func (b *CueBus) Collect(target string) []core.Cue {
	b.mu.Lock()
	b.started[target] = true
	bySource := b.pending[target]
	delete(b.pending, target)
	b.mu.Unlock()

	if len(bySource) == 0 {
		return nil
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var cues []core.Cue
	for _, s := range sources {
		ch := bySource[s]
		close(ch)
		for c := range ch {
			b.run.RecordCue(c)
			cues = append(cues, c)
		}
	}
	return cues
}

// MarkCompleted records that the target finished its invocation; later cues
// addressed to it are dropped.
func (b *CueBus) MarkCompleted(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed[target] = true
}

// Close tears the bus down at run completion, discarding undelivered cues.
func (b *CueBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, bySource := range b.pending {
		for _, ch := range bySource {
			close(ch)
		}
	}
	b.pending = nil
}

// drop must be called with the mutex held.
func (b *CueBus) drop(from, to, reason string) {
	b.run.Append(core.EventCueDropped, from, to, "", reason)
	b.logger.Warn("cue dropped", "from", from, "to", to, "reason", reason)
	if b.instruments != nil {
		b.instruments.RecordCueDrop(b.run.Context(), to, reason)
	}
}
