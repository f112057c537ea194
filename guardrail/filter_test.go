package guardrail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
)

func TestValidateInput_Rejections(t *testing.T) {
	f := New(func(o *Options) {
		o.Policies = map[string]Policy{
			"strict": {
				Name:              "strict",
				RequiredInputKeys: []string{"destination"},
				BannedTerms:       []string{"override the gate"},
			},
		}
	})

	// Nil payload.
	_, verdicts, err := f.ValidateInput("strict", "search", core.Task{Kind: core.TaskSearch})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailGuardrailRejected))
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Allowed)

	// Missing required key.
	task := core.NewTask(core.TaskSearch, map[string]any{"zone": "downtown"})
	_, _, err = f.ValidateInput("strict", "search", task)
	assert.ErrorContains(t, err, "destination")

	// Banned content, case-insensitive.
	task = core.NewTask(core.TaskSearch, map[string]any{"destination": "Override The Gate please"})
	_, _, err = f.ValidateInput("strict", "search", task)
	assert.ErrorContains(t, err, "banned content")

	// Malformed hard constraint.
	task = core.NewTask(core.TaskSearch, map[string]any{"destination": "city hall"})
	task.Constraints.Hard = []core.Constraint{{Key: "", Op: core.OpExists}}
	_, _, err = f.ValidateInput("strict", "search", task)
	assert.ErrorContains(t, err, "empty key")
}

func TestValidateInput_ConstraintKeysNeverRequiredInPayload(t *testing.T) {
	f := New()

	// Hard constraints describe candidate attributes; their keys are checked
	// for well-formedness, not for presence in the task payload.
	task := core.NewTask(core.TaskSearch, map[string]any{"zone": "downtown"})
	task.Constraints.Hard = []core.Constraint{
		{Key: "price", Op: core.OpAtMost, Value: 3.0},
		{Key: "price", Op: core.OpAtLeast, Value: 1.0},
		{Key: "ev_charging", Op: core.OpExists},
	}

	_, verdicts, err := f.ValidateInput("default", "search", task)
	require.NoError(t, err)
	assert.True(t, verdicts[len(verdicts)-1].Allowed)

	// An empty key anywhere in the set still rejects.
	task.Constraints.Hard = append(task.Constraints.Hard, core.Constraint{Key: "", Op: core.OpExists})
	_, _, err = f.ValidateInput("default", "search", task)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailGuardrailRejected))
}

func TestValidateInput_RedactsPII(t *testing.T) {
	f := New()

	task := core.NewTask(core.TaskInteract, map[string]any{
		"message": "reach me at jane.doe@example.com or +1 416 555 0199",
		"nested":  map[string]any{"note": "no pii here"},
	})

	payload, verdicts, err := f.ValidateInput("default", "interaction", task)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].Allowed)
	assert.True(t, verdicts[0].Redacted)

	msg := payload["message"].(string)
	assert.NotContains(t, msg, "example.com")
	assert.NotContains(t, msg, "0199")
	assert.Contains(t, msg, "[redacted]")

	// The original task payload is left untouched.
	assert.Contains(t, task.Payload["message"].(string), "example.com")
}

func TestValidateOutput_TruncateAndRetry(t *testing.T) {
	f := New(func(o *Options) {
		o.Policies = map[string]Policy{
			"tight": {Name: "tight", MaxOutputBytes: 200, OutputRetries: 3},
		}
	})

	items := make([]any, 16)
	for i := range items {
		items[i] = map[string]any{"name": strings.Repeat("x", 20)}
	}

	payload, verdicts, err := f.ValidateOutput("tight", "search", map[string]any{"items": items})
	require.NoError(t, err)

	final := verdicts[len(verdicts)-1]
	assert.True(t, final.Allowed)
	assert.True(t, final.Truncated)

	retries := 0
	for _, v := range verdicts {
		if v.Reason == "truncate_retry" {
			retries++
		}
	}
	assert.Greater(t, retries, 0, "over-length output must be truncated, not rejected outright")
	assert.Less(t, len(payload["items"].([]any)), 16)
}

func TestValidateOutput_RejectsAfterBudget(t *testing.T) {
	f := New(func(o *Options) {
		o.Policies = map[string]Policy{
			"tiny": {Name: "tiny", MaxOutputBytes: 10, OutputRetries: 1},
		}
	})

	_, _, err := f.ValidateOutput("tiny", "search", map[string]any{
		"blob": strings.Repeat("y", 4096),
	})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.FailGuardrailRejected))
}

func TestPolicyFor_FallsBackToDefault(t *testing.T) {
	f := New()
	p := f.PolicyFor("unknown")
	assert.Equal(t, DefaultPolicyName, p.Name)
	assert.True(t, p.RedactPII)
}
