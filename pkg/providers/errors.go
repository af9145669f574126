package providers

import (
	"errors"
	"strings"
)

// ErrMissingAPIKey aborts construction; it is never retried.
var ErrMissingAPIKey = errors.New("providers: API key is required")

// FailureReason buckets a streaming failure for fallback selection and logs.
type FailureReason string

const (
	ReasonQuota     FailureReason = "quota"
	ReasonSafety    FailureReason = "safety"
	ReasonNetwork   FailureReason = "network"
	ReasonMalformed FailureReason = "malformed"
)

// ClassifyFailure maps a provider error onto a failure reason. Unrecognized
// errors count as network trouble, the most common transient cause.
// Provider-side timeouts land here too: whether a turn was cancelled is
// decided from the caller's context, never from the error chain, because an
// HTTP client timeout wraps context.DeadlineExceeded just like a caller
// deadline does.
func ClassifyFailure(err error) FailureReason {
	if err == nil {
		return ReasonMalformed
	}
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource exhausted") ||
		strings.Contains(lower, "429"):
		return ReasonQuota
	case strings.Contains(lower, "safety") ||
		strings.Contains(lower, "blocked") ||
		strings.Contains(lower, "content filter") ||
		strings.Contains(lower, "content_filter"):
		return ReasonSafety
	case strings.Contains(lower, "malformed") ||
		strings.Contains(lower, "unmarshal") ||
		strings.Contains(lower, "unexpected response") ||
		strings.Contains(lower, "no candidates") ||
		strings.Contains(lower, "empty response"):
		return ReasonMalformed
	default:
		return ReasonNetwork
	}
}
