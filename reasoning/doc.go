// Package reasoning adapts natural-language reasoning providers to the
// opaque per-agent Solve contract consumed by the core. The orchestration
// layer never sees provider APIs: it hands a task plus accumulated cues to a
// core.Solver and receives structured output or a typed failure.
//
// Provider adapters for Anthropic and OpenAI live in sub-packages; the
// deterministic MockSolver here backs tests and offline examples.
package reasoning
