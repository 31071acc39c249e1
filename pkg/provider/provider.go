package provider

import (
	"context"
	"errors"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// ErrNilProvider is returned when registering a nil provider.
var ErrNilProvider = errors.New("provider is required")

// ErrDuplicateProvider is returned when two providers answer for the same source.
var ErrDuplicateProvider = errors.New("provider already registered for source")

// ErrDetailsNotSupported is returned when a provider cannot look up a single place.
var ErrDetailsNotSupported = errors.New("provider does not support place details")

// Request is what a provider receives for one search.
type Request struct {
	// Query is the normalized, non-blank search text.
	Query string

	// Limit is the maximum number of places the provider should return.
	Limit int

	// Near optionally biases results towards a location.
	// Providers without proximity support ignore it.
	Near *place.Coordinates
}

// Provider answers a place query from one source.
//
// Implementations must be safe for concurrent use. They must honor the
// context deadline, return an empty slice (not an error) when nothing
// matches, and map every native failure onto the shared failure taxonomy.
type Provider interface {
	// Name returns the source this provider answers for.
	Name() place.Source

	// Search returns places matching req, in the provider's own order.
	Search(ctx context.Context, req Request) ([]place.Place, error)
}

// DetailProvider is implemented by providers that can resolve one place
// from its native identifier.
type DetailProvider interface {
	Provider

	// Lookup returns the place with the given provider-native id.
	Lookup(ctx context.Context, nativeID string) (place.Place, error)
}

// Func adapts a function to the Provider interface.
type Func struct {
	Source place.Source
	Fn     func(ctx context.Context, req Request) ([]place.Place, error)
}

// Name implements Provider.
func (f Func) Name() place.Source { return f.Source }

// Search implements Provider.
func (f Func) Search(ctx context.Context, req Request) ([]place.Place, error) {
	return f.Fn(ctx, req)
}
