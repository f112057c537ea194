// Package core provides the foundational domain types, interfaces and execution
// contexts used by ParkMesh. It defines the core abstractions for:
//
//   - Tasks (the unit of work, with a closed kind set and hard/soft constraints)
//   - Agents (registered, specialized task-handlers with declared capabilities)
//   - Registry (immutable kind → eligible agent index built once at startup)
//   - RunContext (per-run trace and cue accumulator with monotonic ordering)
//   - Cooperation plans (augmentative, integrative, debative assignments)
//   - Results and the failure taxonomy returned to the transport boundary
//   - Pluggable capability contracts for tools, reasoning and preferences
//
// The package intentionally keeps implementation concerns (guardrails, routing,
// cooperation resolution, concrete agents) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
