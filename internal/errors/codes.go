// Package errors provides structured error handling for placesearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and cache errors
//   - 3XX: Provider errors (the per-provider failure taxonomy)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates storage, index and cache errors.
	CategoryStorage Category = "STORAGE"
	// CategoryProvider indicates a search provider failed.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// FailureKind is the shared provider failure taxonomy.
// Every provider-native error is mapped onto one of these kinds at the
// adapter boundary.
type FailureKind string

const (
	// FailureNone marks errors that are not provider failures.
	FailureNone FailureKind = ""
	// FailureTimeout means the provider missed its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureRequest means the provider rejected the request (bad input, auth).
	FailureRequest FailureKind = "request_error"
	// FailureRateLimited means the provider or local pacing refused the call.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureUnavailable means the provider could not be reached or errored.
	FailureUnavailable FailureKind = "unavailable"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingAPIKey  = "ERR_103_MISSING_API_KEY"

	// Storage errors (200-299)
	ErrCodeCacheUnavailable = "ERR_201_CACHE_UNAVAILABLE"
	ErrCodeStorageFailed    = "ERR_202_STORAGE_FAILED"
	ErrCodeIndexFailed      = "ERR_203_INDEX_FAILED"
	ErrCodeIndexLocked      = "ERR_204_INDEX_LOCKED"

	// Provider errors (300-399)
	ErrCodeProviderTimeout     = "ERR_301_PROVIDER_TIMEOUT"
	ErrCodeProviderRequest     = "ERR_302_PROVIDER_REQUEST"
	ErrCodeProviderRateLimited = "ERR_303_PROVIDER_RATE_LIMITED"
	ErrCodeProviderUnavailable = "ERR_304_PROVIDER_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput    = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery    = "ERR_403_INVALID_QUERY"
	ErrCodeUnknownProvider = "ERR_404_UNKNOWN_PROVIDER"
	ErrCodePlaceNotFound   = "ERR_405_PLACE_NOT_FOUND"

	// Internal errors (500-599)
	ErrCodeInternal           = "ERR_501_INTERNAL"
	ErrCodeAllProvidersFailed = "ERR_502_ALL_PROVIDERS_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "301" from "ERR_301_PROVIDER_TIMEOUT")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeInvalidQuery, ErrCodeAllProvidersFailed:
		return SeverityFatal
	case ErrCodeCacheUnavailable, ErrCodeStorageFailed:
		// Degraded: search continues without the cache or sink.
		return SeverityWarning
	}

	if kindFromCode(code) != FailureNone {
		return SeverityWarning
	}

	return SeverityError
}

// kindFromCode maps provider error codes onto the failure taxonomy.
func kindFromCode(code string) FailureKind {
	switch code {
	case ErrCodeProviderTimeout:
		return FailureTimeout
	case ErrCodeProviderRequest:
		return FailureRequest
	case ErrCodeProviderRateLimited:
		return FailureRateLimited
	case ErrCodeProviderUnavailable:
		return FailureUnavailable
	default:
		return FailureNone
	}
}

// codeFromKind is the inverse of kindFromCode.
func codeFromKind(kind FailureKind) string {
	switch kind {
	case FailureTimeout:
		return ErrCodeProviderTimeout
	case FailureRequest:
		return ErrCodeProviderRequest
	case FailureRateLimited:
		return ErrCodeProviderRateLimited
	default:
		return ErrCodeProviderUnavailable
	}
}

// isRetryableCode checks if an error code represents a retryable error.
// Timeouts are not retried: the deadline that produced them is already spent.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderUnavailable, ErrCodeCacheUnavailable:
		return true
	default:
		return false
	}
}
