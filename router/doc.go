// Package router implements the two inter-agent interaction primitives:
//
//   - Handoff: synchronous, exclusive transfer of sub-task ownership from one
//     agent to another, gated by capability declarations and per-agent
//     concurrency limits (immediate rejection as backpressure, no silent
//     queueing).
//   - Cueing: asynchronous, fire-and-forget delivery of read-only context
//     over bounded per-(source, target) channels scoped to a single run.
//     A dropped or late cue degrades context quality but never fails a run.
package router
