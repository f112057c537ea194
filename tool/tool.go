package tool

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
)

// Tool is one external capability behind the uniform invocation contract.
type Tool interface {
	ID() string
	Invoke(ctx context.Context, req map[string]any) (map[string]any, error)
}

// RetryPolicy bounds retries of one tool's invocations. MaxTries counts the
// first attempt, so the default of 3 means up to 2 retries.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the baseline exponential backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// Options configures the Registry.
type Options struct {
	// Policies overrides the retry policy per tool id.
	Policies map[string]RetryPolicy
	// Default applies to tools without a specific policy.
	Default RetryPolicy
	Logger  logging.Logger
}

// Registry indexes tools by id and implements core.ToolInvoker with
// per-invocation timeouts and per-tool bounded retries. Register all tools
// during startup wiring; the registry is read-only afterwards.
type Registry struct {
	tools    map[string]Tool
	policies map[string]RetryPolicy
	fallback RetryPolicy
	logger   logging.Logger
}

// NewRegistry constructs a Registry with optional overrides.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Policies: map[string]RetryPolicy{},
		Default:  DefaultRetryPolicy(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		policies: opts.Policies,
		fallback: opts.Default,
		logger:   opts.Logger,
	}
}

// Register adds a tool to the registry, replacing any previous registration
// under the same id.
func (r *Registry) Register(t Tool) { r.tools[t.ID()] = t }

// Has reports whether a tool id is registered.
func (r *Registry) Has(toolID string) bool {
	_, ok := r.tools[toolID]
	return ok
}

// Invoke implements core.ToolInvoker. Unknown tools fail immediately;
// transient provider errors are retried per the tool's policy. The final
// error always carries the tool failure kind.
func (r *Registry) Invoke(ctx context.Context, toolID string, req map[string]any, timeout time.Duration) (map[string]any, error) {
	t, ok := r.tools[toolID]
	if !ok {
		return nil, core.NewFailure(core.FailToolFailure, "unknown tool %q", toolID)
	}
	policy := r.fallback
	if p, overridden := r.policies[toolID]; overridden {
		policy = p
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.InitialInterval
	expo.MaxInterval = policy.MaxInterval

	operation := func() (map[string]any, error) {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return t.Invoke(callCtx, req)
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("tool call retrying", "tool_id", toolID, "error", err.Error(), "next_attempt_in", next.String())
		}),
	)
	if err != nil {
		return nil, core.WrapFailure(core.FailToolFailure, err, "tool %s failed after %d attempts", toolID, policy.MaxTries)
	}
	return resp, nil
}

// Permanent marks a tool error as non-retryable (e.g. invalid credentials).
func Permanent(err error) error { return backoff.Permanent(err) }
