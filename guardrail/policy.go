package guardrail

// Policy is the per-agent guardrail configuration referenced by an agent's
// capability. A zero policy name falls back to the filter's default.
type Policy struct {
	// Name identifies the policy in capability declarations and config.
	Name string
	// RequiredInputKeys must all be present in an input payload.
	RequiredInputKeys []string
	// BannedTerms reject any payload containing one of them (case-insensitive).
	BannedTerms []string
	// RedactPII enables redaction of email addresses and phone numbers.
	RedactPII bool
	// MaxOutputBytes caps the serialized output size to bound latency.
	// Zero disables the bound.
	MaxOutputBytes int
	// OutputRetries bounds truncate-and-retry attempts for over-length
	// output. Negative disables retries entirely.
	OutputRetries int
}

// DefaultPolicyName is the name of the baseline policy.
const DefaultPolicyName = "default"

// DefaultPolicy returns the baseline policy applied when an agent does not
// reference a named one.
func DefaultPolicy() Policy {
	return Policy{
		Name:           DefaultPolicyName,
		RedactPII:      true,
		MaxOutputBytes: 64 * 1024,
		OutputRetries:  1,
	}
}
