package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
)

type flakyTool struct {
	id       string
	failures int32
	calls    atomic.Int32
	err      error
}

func (f *flakyTool) ID() string { return f.id }

func (f *flakyTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("provider unavailable")
	}
	return map[string]any{"echo": req["value"]}, nil
}

func fastPolicy(tries uint) RetryPolicy {
	return RetryPolicy{MaxTries: tries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRegistry_RetriesTransientFailures(t *testing.T) {
	ft := &flakyTool{id: "traffic", failures: 2}
	r := NewRegistry(func(o *Options) {
		o.Default = fastPolicy(3)
	})
	r.Register(ft)

	resp, err := r.Invoke(context.Background(), "traffic", map[string]any{"value": 42}, 0)

	require.NoError(t, err)
	assert.Equal(t, 42, resp["echo"])
	assert.EqualValues(t, 3, ft.calls.Load())
}

func TestRegistry_ExhaustedRetriesReturnToolFailure(t *testing.T) {
	ft := &flakyTool{id: "payment", failures: 10}
	r := NewRegistry(func(o *Options) {
		o.Default = fastPolicy(3)
	})
	r.Register(ft)

	_, err := r.Invoke(context.Background(), "payment", map[string]any{}, 0)

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailToolFailure))
	assert.EqualValues(t, 3, ft.calls.Load())
}

func TestRegistry_PermanentErrorStopsRetrying(t *testing.T) {
	ft := &flakyTool{id: "gate_control", failures: 10, err: Permanent(errors.New("invalid credential"))}
	r := NewRegistry(func(o *Options) {
		o.Default = fastPolicy(5)
	})
	r.Register(ft)

	_, err := r.Invoke(context.Background(), "gate_control", map[string]any{}, 0)

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailToolFailure))
	assert.EqualValues(t, 1, ft.calls.Load(), "a permanent error must not be retried")
}

func TestRegistry_UnknownToolFailsImmediately(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "nonexistent", map[string]any{}, 0)

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailToolFailure))
}

func TestRegistry_PerToolPolicyOverride(t *testing.T) {
	ft := &flakyTool{id: "occupancy", failures: 10}
	r := NewRegistry(func(o *Options) {
		o.Default = fastPolicy(5)
		o.Policies = map[string]RetryPolicy{"occupancy": fastPolicy(1)}
	})
	r.Register(ft)

	_, err := r.Invoke(context.Background(), "occupancy", map[string]any{}, 0)

	require.Error(t, err)
	assert.EqualValues(t, 1, ft.calls.Load())
}

type slowTool struct{ id string }

func (s slowTool) ID() string { return s.id }

func (s slowTool) Invoke(ctx context.Context, _ map[string]any) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, Permanent(ctx.Err())
	case <-time.After(time.Second):
		return map[string]any{}, nil
	}
}

func TestRegistry_TimeoutBoundsEachAttempt(t *testing.T) {
	r := NewRegistry(func(o *Options) {
		o.Default = fastPolicy(1)
	})
	r.Register(slowTool{id: "parking_data"})

	start := time.Now()
	_, err := r.Invoke(context.Background(), "parking_data", map[string]any{}, 20*time.Millisecond)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	r.Register(&flakyTool{id: "geo_distance"})

	assert.True(t, r.Has("geo_distance"))
	assert.False(t, r.Has("weather"))
}
