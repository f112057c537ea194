// Package guardrail validates and sanitizes payloads crossing agent
// boundaries. The Filter applies, in order: schema/type conformance,
// hard-constraint presence (input only), content policy (banned terms, PII
// redaction) and size bounds (output only). Input rejections are not
// retryable; over-length output is truncated and re-validated a bounded
// number of times. Every verdict is returned to the caller for tracing.
package guardrail
