package providers

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/adalundhe/glossforge/core/errors"
)

// classifyStatus maps an HTTP status from a provider SDK to the pipeline
// taxonomy. The retry layer acts on the kind, never on the raw status.
func classifyStatus(status int, header http.Header, provider string, cause error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &errors.Error{
			Kind:       errors.KindRateLimited,
			Message:    provider + " rate limited",
			RetryAfter: parseRetryAfter(header),
			Cause:      cause,
		}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.Wrap(errors.KindTimeout, provider+" timed out", cause)
	case status >= 500:
		return errors.Wrap(errors.KindProviderError, provider+" server error", cause)
	default:
		return errors.Wrap(errors.KindProviderError, provider+" request failed", cause)
	}
}

// classifyTransport handles failures that never produced an HTTP status.
func classifyTransport(provider string, cause error) error {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return errors.Wrap(errors.KindTimeout, provider+" call deadline elapsed", cause)
	}
	if stderrors.Is(cause, context.Canceled) {
		return cause
	}
	return errors.Wrap(errors.KindProviderError, provider+" transport failure", cause)
}

// validateText rejects empty or truncated-to-nothing completions as
// InvalidResponse so the retry-once rule applies.
func validateText(provider, text string) error {
	if len(text) == 0 {
		return errors.New(errors.KindInvalidResponse, provider+" returned empty completion")
	}
	return nil
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
