package inference

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoBaseURL           = errors.New("inference: base URL required")
	ErrNoModel             = errors.New("inference: model required")
	ErrNoCommand           = errors.New("inference: command required")
	ErrEmptyOutput         = errors.New("inference: provider returned no answer")
	ErrProviderUnavailable = errors.New("inference: no provider configured")
)

// APIError is a non-200 reply from an OpenAI-compatible endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inference %s: status %d", e.Provider, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// IsRetryable reports whether the same request may succeed later: rate
// limiting, request timeouts and server faults.
func (e *APIError) IsRetryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return e.StatusCode >= 500 && e.StatusCode < 600
	}
}

// ProviderError tags an error with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return "inference " + e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError tags err with provider. Errors already tagged, including
// APIError, pass through unchanged.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	var ae *APIError
	if errors.As(err, &pe) || errors.As(err, &ae) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Attempt is one provider's failure inside a chain.
type Attempt struct {
	Provider string
	Err      error
}

// ChainError is returned when every provider in a chain failed to answer.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Provider + ": " + a.Err.Error()
	}
	return fmt.Sprintf("inference: no provider answered (%s)", strings.Join(parts, "; "))
}

// Unwrap exposes every attempt so errors.Is and errors.As see all of them.
func (e *ChainError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}
