// Package mcp exposes place search as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/Aman-CERP/placesearch/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodePlaceNotFound indicates the requested place does not exist.
	ErrCodePlaceNotFound = -32001

	// ErrCodeProvidersFailed indicates every selected provider failed.
	ErrCodeProvidersFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeProviderFailed indicates a single provider failed.
	ErrCodeProviderFailed = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	var pe *perrors.PlaceError
	if errors.As(err, &pe) {
		return mapPlaceError(pe, err)
	}

	return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapPlaceError(pe *perrors.PlaceError, err error) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", pe.Message, pe.Suggestion)
	}

	switch pe.Code {
	case perrors.ErrCodePlaceNotFound:
		return &MCPError{Code: ErrCodePlaceNotFound, Message: message}
	case perrors.ErrCodeAllProvidersFailed:
		// The full error lists each provider's failure.
		return &MCPError{Code: ErrCodeProvidersFailed, Message: err.Error()}
	case perrors.ErrCodeProviderTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}

	switch pe.Category {
	case perrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case perrors.CategoryProvider:
		return &MCPError{Code: ErrCodeProviderFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
