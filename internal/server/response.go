package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/search"
)

// respondJSON marshals v before writing any header so encoding failures
// still produce a clean 500.
func respondJSON(w http.ResponseWriter, status int, v any) {
	respond(w, status, "application/json", v)
}

func respond(w http.ResponseWriter, status int, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("response_encode_failed", slog.String("error", err.Error()))
		http.Error(w, `{"title":"Internal Server Error","status":500}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Extra members are flattened into the top-level object.
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens Extra next to the standard members.
func (p Problem) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 4+len(p.Extra))
	for k, v := range p.Extra {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	return json.Marshal(m)
}

func respondProblem(w http.ResponseWriter, p Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	respond(w, p.Status, "application/problem+json", p)
}

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, errors.ErrAllProvidersFailed):
		return http.StatusBadGateway
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidQuery, errors.ErrCodeInvalidInput, errors.ErrCodeUnknownProvider:
		return http.StatusBadRequest
	case errors.ErrCodePlaceNotFound:
		return http.StatusNotFound
	case errors.ErrCodeProviderTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeProviderRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeProviderRequest, errors.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as a problem document. Structured errors
// contribute their code; an all-providers failure lists each provider.
func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	p := Problem{Status: status, Extra: map[string]any{}}

	var pe *errors.PlaceError
	if stderrors.As(err, &pe) {
		p.Detail = pe.Message
		p.Extra["code"] = pe.Code
		if pe.Suggestion != "" {
			p.Extra["suggestion"] = pe.Suggestion
		}
		if pe.Provider != "" {
			p.Extra["provider"] = pe.Provider
		}
	}

	var all *search.AllProvidersFailedError
	if stderrors.As(err, &all) {
		failures := make(map[string]errors.JSONError, len(all.Failures))
		for _, src := range all.Sources() {
			failures[string(src)] = errors.ToJSON(all.Failures[src])
		}
		p.Extra["failures"] = failures
	}

	if p.Detail == "" {
		if status == http.StatusInternalServerError {
			p.Detail = "internal error"
		} else {
			p.Detail = err.Error()
		}
	}
	respondProblem(w, p)
}
