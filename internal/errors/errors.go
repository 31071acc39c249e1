package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// PlaceError is the structured error type for placesearch.
// It provides rich context for error handling, logging, and user presentation.
type PlaceError struct {
	// Code is the unique error code (e.g., "ERR_301_PROVIDER_TIMEOUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Provider, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Kind is the provider failure kind, FailureNone for non-provider errors.
	Kind FailureKind

	// Provider names the provider that failed, if any.
	Provider string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *PlaceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Provider, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PlaceError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with PlaceError.
func (e *PlaceError) Is(target error) bool {
	if t, ok := target.(*PlaceError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *PlaceError) WithDetail(key, value string) *PlaceError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *PlaceError) WithSuggestion(suggestion string) *PlaceError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PlaceError with the given code and message.
// Category, severity, failure kind and retryable flag are derived from the code.
func New(code string, message string, cause error) *PlaceError {
	return &PlaceError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Kind:      kindFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PlaceError from an existing error.
// The error's message becomes the PlaceError message.
func Wrap(code string, err error) *PlaceError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. They match any PlaceError with the same code.
var (
	ErrInvalidQuery       = New(ErrCodeInvalidQuery, "query must not be empty", nil)
	ErrAllProvidersFailed = New(ErrCodeAllProvidersFailed, "all providers failed", nil)
	ErrCacheUnavailable   = New(ErrCodeCacheUnavailable, "cache unavailable", nil)
	ErrUnknownProvider    = New(ErrCodeUnknownProvider, "unknown provider", nil)
	ErrPlaceNotFound      = New(ErrCodePlaceNotFound, "place not found", nil)
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PlaceError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *PlaceError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InvalidQuery creates the error returned for blank queries.
func InvalidQuery(query string) *PlaceError {
	return New(ErrCodeInvalidQuery, "query must not be empty", nil).
		WithDetail("query", query).
		WithSuggestion("Provide a non-blank search query")
}

// CacheUnavailable creates a cache backend error.
func CacheUnavailable(message string, cause error) *PlaceError {
	return New(ErrCodeCacheUnavailable, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PlaceError {
	return New(ErrCodeInternal, message, cause)
}

// ProviderFailure creates a provider failure of the given kind.
func ProviderFailure(kind FailureKind, provider, message string, cause error) *PlaceError {
	e := New(codeFromKind(kind), message, cause)
	e.Provider = provider
	return e
}

// Timeout creates a FailureTimeout for provider.
func Timeout(provider string, cause error) *PlaceError {
	return ProviderFailure(FailureTimeout, provider, "provider did not respond before its deadline", cause)
}

// Unavailable creates a FailureUnavailable for provider.
func Unavailable(provider, message string, cause error) *PlaceError {
	return ProviderFailure(FailureUnavailable, provider, message, cause)
}

// RateLimited creates a FailureRateLimited for provider.
func RateLimited(provider, message string, cause error) *PlaceError {
	return ProviderFailure(FailureRateLimited, provider, message, cause)
}

// RequestError creates a FailureRequest for provider.
func RequestError(provider, message string, cause error) *PlaceError {
	return ProviderFailure(FailureRequest, provider, message, cause)
}

// FromHTTPStatus maps a non-2xx provider response onto the failure taxonomy.
//
//	429           -> rate limited
//	401, 403      -> request error (authentication / quota denied)
//	other 4xx     -> request error
//	5xx and other -> unavailable
func FromHTTPStatus(provider string, status int, body string) *PlaceError {
	message := fmt.Sprintf("HTTP %d", status)
	if body != "" {
		message += ": " + truncate(body, 200)
	}

	var e *PlaceError
	switch {
	case status == http.StatusTooManyRequests:
		e = RateLimited(provider, message, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = RequestError(provider, message, nil).
			WithSuggestion("Check the provider API key or access token")
	case status >= 400 && status < 500:
		e = RequestError(provider, message, nil)
	default:
		e = Unavailable(provider, message, nil)
	}
	return e.WithDetail("status", fmt.Sprint(status))
}

// AsProviderFailure normalizes any error returned by a provider into a
// provider failure. Errors that already carry a failure kind pass through,
// copied when the provider name has to be filled in. Context deadlines
// become timeouts; network errors become unavailable; everything else is a
// request error.
func AsProviderFailure(provider string, err error) *PlaceError {
	if err == nil {
		return nil
	}

	var pe *PlaceError
	if stderrors.As(err, &pe) && pe.Kind != FailureNone {
		if pe.Provider == "" {
			// Providers may return shared values; never write to them.
			c := *pe
			c.Provider = provider
			return &c
		}
		return pe
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return Timeout(provider, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return Unavailable(provider, "request cancelled", err)
	}
	if stderrors.Is(err, ErrCircuitOpen) {
		return Unavailable(provider, "provider temporarily disabled after repeated failures", err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout(provider, err)
		}
		return Unavailable(provider, err.Error(), err)
	}

	return RequestError(provider, err.Error(), err)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a PlaceError with Retryable flag set.
func IsRetryable(err error) bool {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a PlaceError.
// Returns empty string if not a PlaceError.
func GetCode(err error) string {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// GetKind extracts the provider failure kind.
// Returns FailureNone if err is not a provider failure.
func GetKind(err error) FailureKind {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return FailureNone
}

// GetCategory extracts the category from a PlaceError.
// Returns empty string if not a PlaceError.
func GetCategory(err error) Category {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
