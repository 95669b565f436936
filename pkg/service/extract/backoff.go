package extract

import (
	"strings"
	"time"
)

// failureKind classifies completion service failures for retry policy.
type failureKind int

const (
	failureNone failureKind = iota
	// failureRateLimited retries with exponential backoff
	failureRateLimited
	// failureOverloaded retries with linear backoff
	failureOverloaded
	// failureUnexpected is not retried
	failureUnexpected
)

func (k failureKind) String() string {
	switch k {
	case failureRateLimited:
		return "rate_limited"
	case failureOverloaded:
		return "overloaded"
	case failureUnexpected:
		return "unexpected"
	default:
		return "none"
	}
}

// classifyFailure inspects an error from the completion service. The
// underlying SDKs do not expose typed rate-limit errors through
// gollem, so classification falls back on status codes and markers in
// the error text.
func classifyFailure(err error) failureKind {
	if err == nil {
		return failureNone
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "quota"):
		return failureRateLimited
	case strings.Contains(msg, "529"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"):
		return failureOverloaded
	default:
		return failureUnexpected
	}
}

// retryState is an explicit backoff state machine: attempt count,
// failure kind, next delay. It is independently unit-testable without
// real time delays; the client injects a sleep function.
type retryState struct {
	kind        failureKind
	attempt     int
	maxAttempts int
	baseDelay   time.Duration // exponential: base doubling per attempt
	linearStep  time.Duration // linear: fixed increment x attempt number
}

func newRetryState(kind failureKind, maxAttempts int, baseDelay, linearStep time.Duration) *retryState {
	return &retryState{
		kind:        kind,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		linearStep:  linearStep,
	}
}

// Next returns the delay before the next attempt, or false when the
// policy does not allow another attempt.
func (s *retryState) Next() (time.Duration, bool) {
	s.attempt++
	if s.attempt >= s.maxAttempts {
		return 0, false
	}

	switch s.kind {
	case failureRateLimited:
		return s.baseDelay << (s.attempt - 1), true
	case failureOverloaded:
		return s.linearStep * time.Duration(s.attempt), true
	default:
		return 0, false
	}
}
