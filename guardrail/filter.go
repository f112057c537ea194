package guardrail

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/parkmesh/core"
	"github.com/hupe1980/parkmesh/logging"
)

// Direction distinguishes the two validation boundaries.
type Direction string

const (
	// DirectionInput validates a payload before agent execution.
	DirectionInput Direction = "input"
	// DirectionOutput validates a payload after execution or merging.
	DirectionOutput Direction = "output"
)

// Verdict is one guardrail decision. Verdicts are returned in evaluation
// order so the orchestrator can append them to the run trace.
type Verdict struct {
	AgentID   string
	Direction Direction
	Allowed   bool
	Reason    string
	Redacted  bool
	Truncated bool
}

// Options configures the Filter.
type Options struct {
	// Policies maps policy names to their definitions.
	Policies map[string]Policy
	// Default applies to agents without a named policy.
	Default Policy
	// Logger receives verdict diagnostics.
	Logger logging.Logger
}

// Filter validates input and output payloads against per-agent policy.
// Filters are immutable after construction and safe for concurrent use.
type Filter struct {
	policies map[string]Policy
	fallback Policy
	logger   logging.Logger
}

// New constructs a Filter with optional overrides.
func New(optFns ...func(o *Options)) *Filter {
	opts := Options{
		Policies: map[string]Policy{},
		Default:  DefaultPolicy(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Filter{policies: opts.Policies, fallback: opts.Default, logger: opts.Logger}
}

// PolicyFor resolves the policy applied to the named guardrail policy.
func (f *Filter) PolicyFor(name string) Policy {
	if p, ok := f.policies[name]; ok {
		return p
	}
	return f.fallback
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9 ()./-]{7,}[0-9]`)
)

const redactedMark = "[redacted]"

// ValidateInput checks a payload before agent execution. Rejections are
// non-retryable: the caller must fix the request. The (possibly redacted)
// payload is returned alongside all verdicts recorded.
func (f *Filter) ValidateInput(policyName, agentID string, task core.Task) (map[string]any, []Verdict, error) {
	p := f.PolicyFor(policyName)
	var verdicts []Verdict

	reject := func(reason string) (map[string]any, []Verdict, error) {
		v := Verdict{AgentID: agentID, Direction: DirectionInput, Allowed: false, Reason: reason}
		verdicts = append(verdicts, v)
		f.logger.Warn("guardrail input rejected", "agent_id", agentID, "reason", reason)
		return nil, verdicts, core.NewFailure(core.FailGuardrailRejected, "input rejected for %s: %s", agentID, reason)
	}

	if task.Payload == nil {
		return reject("missing payload")
	}
	if _, err := json.Marshal(task.Payload); err != nil {
		return reject(fmt.Sprintf("payload not serializable: %v", err))
	}
	for _, key := range task.Constraints.RequiredKeys() {
		if key == "" {
			return reject("hard constraint with empty key")
		}
	}
	for _, key := range p.RequiredInputKeys {
		if _, ok := task.Payload[key]; !ok {
			return reject(fmt.Sprintf("missing required key %q", key))
		}
	}
	if term := findBannedTerm(task.Payload, p.BannedTerms); term != "" {
		return reject(fmt.Sprintf("banned content %q", term))
	}

	payload := task.Payload
	redacted := false
	if p.RedactPII {
		payload, redacted = redactPII(payload)
	}
	verdicts = append(verdicts, Verdict{AgentID: agentID, Direction: DirectionInput, Allowed: true, Redacted: redacted})
	return payload, verdicts, nil
}

// ValidateOutput checks a payload after execution or merging. Over-length
// output triggers a bounded truncate-and-retry loop before rejecting; each
// attempt is recorded as a verdict.
func (f *Filter) ValidateOutput(policyName, agentID string, payload map[string]any) (map[string]any, []Verdict, error) {
	p := f.PolicyFor(policyName)
	var verdicts []Verdict

	reject := func(reason string) (map[string]any, []Verdict, error) {
		verdicts = append(verdicts, Verdict{AgentID: agentID, Direction: DirectionOutput, Allowed: false, Reason: reason})
		f.logger.Warn("guardrail output rejected", "agent_id", agentID, "reason", reason)
		return nil, verdicts, core.NewFailure(core.FailGuardrailRejected, "output rejected for %s: %s", agentID, reason)
	}

	if payload == nil {
		return reject("empty output")
	}
	if _, err := json.Marshal(payload); err != nil {
		return reject(fmt.Sprintf("output not serializable: %v", err))
	}
	if term := findBannedTerm(payload, p.BannedTerms); term != "" {
		return reject(fmt.Sprintf("banned content %q", term))
	}

	redacted := false
	if p.RedactPII {
		payload, redacted = redactPII(payload)
	}

	truncated := false
	if p.MaxOutputBytes > 0 {
		retries := p.OutputRetries
		for attempt := 0; payloadSize(payload) > p.MaxOutputBytes; attempt++ {
			if attempt >= retries {
				return reject(fmt.Sprintf("output exceeds %d bytes after %d truncation attempts", p.MaxOutputBytes, attempt))
			}
			payload = truncatePayload(payload)
			truncated = true
			verdicts = append(verdicts, Verdict{AgentID: agentID, Direction: DirectionOutput, Allowed: true, Reason: "truncate_retry", Truncated: true})
		}
	}

	verdicts = append(verdicts, Verdict{AgentID: agentID, Direction: DirectionOutput, Allowed: true, Redacted: redacted, Truncated: truncated})
	return payload, verdicts, nil
}

func payloadSize(payload map[string]any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	return len(data)
}

// truncatePayload shrinks the payload by halving its largest list value and
// trimming long strings. One call performs one truncation step; the caller
// re-validates and retries within its policy budget.
func truncatePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	largestKey := ""
	largestLen := 0
	for k, v := range payload {
		out[k] = v
		if n := listLen(v); n > largestLen {
			largestKey = k
			largestLen = n
		}
	}
	if largestKey != "" && largestLen > 1 {
		half := (largestLen + 1) / 2
		switch items := out[largestKey].(type) {
		case []any:
			out[largestKey] = items[:half]
		case []map[string]any:
			out[largestKey] = items[:half]
		}
		return out
	}
	for k, v := range out {
		if s, ok := v.(string); ok && len(s) > 256 {
			out[k] = s[:256]
		}
	}
	return out
}

func listLen(v any) int {
	switch items := v.(type) {
	case []any:
		return len(items)
	case []map[string]any:
		return len(items)
	default:
		return 0
	}
}

func findBannedTerm(payload map[string]any, banned []string) string {
	if len(banned) == 0 {
		return ""
	}
	var found string
	walkStrings(payload, func(s string) string {
		lower := strings.ToLower(s)
		for _, term := range banned {
			if strings.Contains(lower, strings.ToLower(term)) {
				found = term
			}
		}
		return s
	})
	return found
}

func redactPII(payload map[string]any) (map[string]any, bool) {
	changed := false
	out := walkStrings(payload, func(s string) string {
		r := emailPattern.ReplaceAllString(s, redactedMark)
		r = phonePattern.ReplaceAllString(r, redactedMark)
		if r != s {
			changed = true
		}
		return r
	})
	return out, changed
}

// walkStrings applies fn to every string value reachable through maps and
// slices, returning a rewritten copy. Non-string leaves pass through.
func walkStrings(payload map[string]any, fn func(string) string) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = walkValue(v, fn)
	}
	return out
}

func walkValue(v any, fn func(string) string) any {
	switch val := v.(type) {
	case string:
		return fn(val)
	case map[string]any:
		return walkStrings(val, fn)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = walkValue(item, fn)
		}
		return items
	case []map[string]any:
		items := make([]map[string]any, len(val))
		for i, item := range val {
			items[i] = walkStrings(item, fn)
		}
		return items
	default:
		return v
	}
}
