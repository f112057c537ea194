package core

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusSucceeded means the full result was produced.
	StatusSucceeded Status = "succeeded"
	// StatusPartial means at least one branch contributed but others failed.
	StatusPartial Status = "partially_succeeded"
	// StatusFailed means no usable result was produced.
	StatusFailed Status = "failed"
)

// Result is the user-visible outcome of a run. On any non-succeeded status
// Failure carries the machine-readable kind plus a human-readable reason.
type Result struct {
	Status       Status
	Payload      map[string]any
	Contributors []string
	Failed       []string
	Failure      *Failure
	Trace        []TraceEntry
}

// Reason returns the human-readable failure reason, or empty on success.
func (r Result) Reason() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Reason
}

// FailureKind returns the taxonomy kind, or empty on success.
func (r Result) FailureKind() FailureKind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}
