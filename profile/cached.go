package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/hupe1980/parkmesh/core"
)

// CachedStoreOptions configure the read-through cache decorator.
type CachedStoreOptions struct {
	// TTL bounds how long a cached entry may serve reads. Zero disables
	// expiry.
	TTL time.Duration

	// MaxCost caps the total serialized bytes held by the cache.
	MaxCost int64

	// NumCounters sizes the frequency sketch; ristretto recommends ten
	// times the expected live entries.
	NumCounters int64
}

// CachedStore layers a ristretto read-through cache over a backing
// PreferenceStore. Reads consult the cache first; writes go to the backing
// store and refresh the cached entry. Entries are stored as serialized JSON
// so cache hits never alias the backing store's maps.
type CachedStore struct {
	backing core.PreferenceStore
	cache   *ristretto.Cache[string, []byte]
	ttl     time.Duration
}

// NewCachedStore wraps the backing store with a read-through cache.
func NewCachedStore(backing core.PreferenceStore, optFns ...func(o *CachedStoreOptions)) (*CachedStore, error) {
	opts := CachedStoreOptions{
		TTL:         5 * time.Minute,
		MaxCost:     1 << 20,
		NumCounters: 10_000,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedStore{
		backing: backing,
		cache:   cache,
		ttl:     opts.TTL,
	}, nil
}

// Get returns cached preferences when present, otherwise reads through to
// the backing store and populates the cache.
func (s *CachedStore) Get(ctx context.Context, sessionID string) (map[string]any, error) {
	if raw, ok := s.cache.Get(sessionID); ok {
		var prefs map[string]any
		if err := json.Unmarshal(raw, &prefs); err == nil {
			return prefs, nil
		}
		// Corrupt entry, fall through to the backing store.
		s.cache.Del(sessionID)
	}

	prefs, err := s.backing.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.put(sessionID, prefs)

	return prefs, nil
}

// Put writes to the backing store and refreshes the cached entry.
func (s *CachedStore) Put(ctx context.Context, sessionID string, prefs map[string]any) error {
	if err := s.backing.Put(ctx, sessionID, prefs); err != nil {
		return err
	}

	s.put(sessionID, prefs)

	return nil
}

// Close releases the cache's internal goroutines.
func (s *CachedStore) Close() {
	s.cache.Close()
}

func (s *CachedStore) put(sessionID string, prefs map[string]any) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return
	}

	s.cache.SetWithTTL(sessionID, raw, int64(len(raw)), s.ttl)
}
