package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// asPlaceError returns err as a PlaceError, wrapping plain errors as internal.
func asPlaceError(err error) *PlaceError {
	var pe *PlaceError
	if stderrors.As(err, &pe) {
		return pe
	}
	return Wrap(ErrCodeInternal, err)
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	pe := asPlaceError(err)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", pe.Message))
	if pe.Provider != "" {
		sb.WriteString(fmt.Sprintf("  Provider: %s (%s)\n", pe.Provider, pe.Kind))
	}
	if pe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", pe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", pe.Code))

	return sb.String()
}

// JSONError is the JSON representation of an error.
type JSONError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Kind       string            `json:"kind,omitempty"`
	Provider   string            `json:"provider,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// ToJSON converts err to its JSON representation.
func ToJSON(err error) JSONError {
	pe := asPlaceError(err)
	return JSONError{
		Code:       pe.Code,
		Message:    pe.Message,
		Category:   string(pe.Category),
		Kind:       string(pe.Kind),
		Provider:   pe.Provider,
		Details:    pe.Details,
		Suggestion: pe.Suggestion,
		Retryable:  pe.Retryable,
	}
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(ToJSON(err))
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) []any {
	if err == nil {
		return nil
	}

	var pe *PlaceError
	if !stderrors.As(err, &pe) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", pe.Code,
		"message", pe.Message,
		"category", string(pe.Category),
		"retryable", pe.Retryable,
	}
	if pe.Provider != "" {
		attrs = append(attrs, "provider", pe.Provider, "kind", string(pe.Kind))
	}
	if pe.Cause != nil {
		attrs = append(attrs, "cause", pe.Cause.Error())
	}
	return attrs
}
