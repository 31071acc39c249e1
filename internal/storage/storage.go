// Package storage persists places returned by remote providers so they can
// later seed the local index.
package storage

import (
	"context"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// PlaceStorage is a durable sink for search results.
//
// Save is an upsert keyed by (source, native ID) and returns how many places
// were written. Places from the local index are not written back.
type PlaceStorage interface {
	Save(ctx context.Context, places []place.Place) (int, error)
	All(ctx context.Context) ([]place.Place, error)
	Close() error
}

// Nop discards everything. It is the default when storage is disabled.
type Nop struct{}

var _ PlaceStorage = Nop{}

// Save discards places.
func (Nop) Save(context.Context, []place.Place) (int, error) { return 0, nil }

// All returns no places.
func (Nop) All(context.Context) ([]place.Place, error) { return []place.Place{}, nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// storable reports whether p should be persisted.
func storable(p place.Place) bool {
	return p.Source != place.SourceWhoosh && p.Source.IsKnown() && p.NativeID() != ""
}
