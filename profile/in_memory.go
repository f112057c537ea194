package profile

import (
	"context"
	"sync"
)

// InMemoryStore is a volatile PreferenceStore implementation storing
// preferences in a process local map. It is safe for concurrent access and
// best suited for tests or ephemeral demo servers. Each returned map is
// cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]map[string]any
}

// NewInMemoryStore constructs an empty in‑memory preference store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{prefs: make(map[string]map[string]any)}
}

// NewInMemoryStoreWithPresets constructs a store pre-seeded with the
// built-in profiles, keyed by preset name. Useful for demos where session
// IDs name a persona directly.
func NewInMemoryStoreWithPresets() *InMemoryStore {
	s := NewInMemoryStore()
	for name, p := range presets {
		s.prefs[name] = clonePrefs(p.Preferences)
	}

	return s
}

// Get returns the stored preferences (clone) for a session, or an empty map
// when the session is unknown.
func (s *InMemoryStore) Get(ctx context.Context, sessionID string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if prefs, ok := s.prefs[sessionID]; ok {
		return clonePrefs(prefs), nil
	}

	return map[string]any{}, nil
}

// Put stores a clone of the provided preferences, replacing any previous
// value for the session.
func (s *InMemoryStore) Put(ctx context.Context, sessionID string, prefs map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[sessionID] = clonePrefs(prefs)

	return nil
}
