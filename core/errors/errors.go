// Package errors implements the pipeline error taxonomy with retry
// classification and backoff policy.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a pipeline failure. Each kind has a defined retry and
// propagation behavior.
type Kind int

const (
	// KindRateLimited indicates the provider rejected the call due to rate
	// limiting. Retryable with backoff; honors RetryAfter when present.
	KindRateLimited Kind = iota

	// KindTimeout indicates a per-call deadline elapsed. Retryable with
	// backoff.
	KindTimeout

	// KindInvalidResponse indicates the provider returned empty or
	// malformed content. Retried once, then fatal for the unit.
	KindInvalidResponse

	// KindProviderError indicates a non-transient provider failure. Fatal
	// for the unit, never retried.
	KindProviderError

	// KindEvaluationInconclusive indicates the evaluator's own output
	// could not be parsed. Not a failure; the artifact is flagged for
	// manual review.
	KindEvaluationInconclusive

	// KindConfiguration indicates an invalid registry or prompt setup.
	// Fatal at startup, never surfaced per unit.
	KindConfiguration

	// KindBudgetExceeded indicates the batch cost ceiling was reached.
	// Stops admission of new units without failing in-flight ones.
	KindBudgetExceeded
)

var kindNames = map[Kind]string{
	KindRateLimited:            "rate_limited",
	KindTimeout:                "timeout",
	KindInvalidResponse:        "invalid_response",
	KindProviderError:          "provider_error",
	KindEvaluationInconclusive: "evaluation_inconclusive",
	KindConfiguration:          "configuration",
	KindBudgetExceeded:         "budget_exceeded",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified pipeline error. It wraps an optional cause and
// carries a provider-supplied RetryAfter hint for rate limits.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// KindProviderError so callers fail closed instead of retrying blindly.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProviderError
}

// Is reports whether the error chain contains a classified error of the
// given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the error should be retried with backoff.
// InvalidResponse is not included here; its retry-once behavior is handled
// by RetryableOnce.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}

// RetryableOnce reports whether the error permits exactly one retry before
// becoming fatal for its unit.
func RetryableOnce(err error) bool {
	return KindOf(err) == KindInvalidResponse
}

// retryAfter extracts the provider's RetryAfter hint, if any.
func retryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
