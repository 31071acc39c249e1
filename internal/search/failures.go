package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// AllProvidersFailedError is returned when every selected provider failed.
// It matches errors.ErrAllProvidersFailed with errors.Is.
type AllProvidersFailedError struct {
	// Failures holds one normalized failure per selected provider.
	Failures map[place.Source]*errors.PlaceError

	err *errors.PlaceError
}

func newAllProvidersFailed(failures map[place.Source]*errors.PlaceError) *AllProvidersFailedError {
	e := &AllProvidersFailedError{Failures: failures}
	e.err = errors.New(errors.ErrCodeAllProvidersFailed,
		fmt.Sprintf("all %d providers failed", len(failures)), nil).
		WithSuggestion("Retry later or select different providers")
	for src, f := range failures {
		e.err.WithDetail(string(src), string(f.Kind))
	}
	return e
}

// Error lists each provider failure in source order.
func (e *AllProvidersFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.err.Error())
	for _, src := range e.Sources() {
		sb.WriteString("; ")
		sb.WriteString(string(src))
		sb.WriteString(": ")
		sb.WriteString(e.Failures[src].Message)
		sb.WriteString(" (")
		sb.WriteString(string(e.Failures[src].Kind))
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap exposes the structured error for errors.Is and errors.As.
func (e *AllProvidersFailedError) Unwrap() error {
	return e.err
}

// Sources returns the failed sources sorted by name.
func (e *AllProvidersFailedError) Sources() []place.Source {
	sources := make([]place.Source, 0, len(e.Failures))
	for src := range e.Failures {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
