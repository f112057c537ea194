// Package tool provides the uniform capability contract through which agents
// reach external providers (parking data, geo distance, traffic, payment,
// access hardware). Every invocation runs under a per-call timeout and a
// per-tool retry policy with exponential backoff; provider-specific protocol
// details never leak into the core.
//
// The package also ships deterministic in-memory stub tools mirroring the
// external providers, used by the bundled agents, examples and tests.
package tool
