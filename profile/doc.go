// Package profile manages per-session user preference profiles. The
// orchestrator reads preferences at planning time to bias soft-constraint
// weighting and candidate ranking; agents receive them read-only through
// the invocation.
//
// Stores implement core.PreferenceStore. The in-memory store suits tests
// and single-process deployments; CachedStore layers a ristretto
// read-through cache over any backing store.
package profile
