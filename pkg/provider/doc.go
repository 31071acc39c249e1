// Package provider defines the capability contract shared by all place
// search providers, and a registry that maps sources to implementations.
//
// Implementations live in internal/provider:
//
//   - local: full-text index of stored places (source "whoosh")
//   - mapbox: Mapbox Search Box suggestions
//   - googleplaces: Google Places text search
//
// # Usage
//
//	reg, _ := provider.NewRegistry(localIdx, mapboxClient, googleClient)
//	p, ok := reg.Get(place.SourceMapbox)
//	places, err := p.Search(ctx, provider.Request{Query: "coffee", Limit: 5})
//
// Tests and small integrations can wrap a function with [Func]:
//
//	stub := provider.Func{
//	    Source: place.SourceWhoosh,
//	    Fn: func(ctx context.Context, req provider.Request) ([]place.Place, error) {
//	        return nil, nil
//	    },
//	}
//
// # Thread Safety
//
// Providers and the Registry are safe for concurrent use.
package provider
