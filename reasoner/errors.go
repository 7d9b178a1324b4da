package reasoner

import (
	"fmt"
	"strings"
)

// ReasonerError is the base error type for all reasoner failures.
type ReasonerError struct {
	Message string
	Cause   error
}

func (e *ReasonerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ReasonerError) Unwrap() error {
	return e.Cause
}

// Concrete failure classes.

// AuthError indicates invalid or missing provider credentials.
type AuthError struct{ ReasonerError }

// RateLimitError indicates the provider is throttling requests.
type RateLimitError struct{ ReasonerError }

// ServerError indicates a transient provider-side failure.
type ServerError struct{ ReasonerError }

// TimeoutError indicates the request timed out before completing.
type TimeoutError struct{ ReasonerError }

// MalformedOutputError indicates the model responded but the response
// could not be parsed into the required shape.
type MalformedOutputError struct{ ReasonerError }

// IsRetryable reports whether a failed call is safe to repeat.
// Malformed output is retryable: a fresh sample often parses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch err.(type) {
	case *AuthError:
		return false
	case *RateLimitError, *ServerError, *TimeoutError, *MalformedOutputError:
		return true
	default:
		return false
	}
}

// ClassifyError converts a raw provider error into the reasoner hierarchy
// based on its message. gollm surfaces provider failures as opaque errors,
// so classification is textual.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthError{ReasonerError: ReasonerError{Message: msg, Cause: err}}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return &RateLimitError{ReasonerError: ReasonerError{Message: msg, Cause: err}}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return &TimeoutError{ReasonerError: ReasonerError{Message: msg, Cause: err}}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server") || strings.Contains(lower, "overloaded"):
		return &ServerError{ReasonerError: ReasonerError{Message: msg, Cause: err}}
	default:
		return &ReasonerError{Message: msg, Cause: err}
	}
}
