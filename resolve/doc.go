// Package resolve implements the three cooperation formulas that combine
// multiple agents' outputs into one result:
//
//   - Augmentative: parallel partition, concatenation of non-failed
//     sub-results, deduplication by a registered key function and truncation
//     to the requested count. Fails only when every participant fails.
//   - Integrative: a staged chain (or DAG) where a stage starts only after
//     all of its declared predecessors completed successfully and consumes
//     their merged structured output. Any predecessor failure aborts the
//     whole chain; there is no partial integrative result.
//   - Debative: identical task fanned out to independently configured
//     agents, a registered scoring rule ranking the hard-constraint
//     satisfying candidates, ties broken by declared agent priority.
//
// Merge functions, scoring rules and dedupe key functions are registered by
// identifier at startup so cooperation plans stay plain data.
package resolve
