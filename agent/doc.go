// Package agent contains the specialized task handlers registered with the
// mesh: interaction, informative search, on-route guidance, access,
// micro-routing, on-spot monitoring and departure. Each agent declares a
// core.Capability, consumes external providers exclusively through the
// tool layer, and delegates open-ended reasoning to an opaque solver.
//
// Agents are stateless between invocations; everything an execution may use
// arrives in the core.Invocation, and early context for downstream agents
// leaves through the invocation's cue hook.
package agent
