package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

func stub(source place.Source) Func {
	return Func{
		Source: source,
		Fn: func(ctx context.Context, req Request) ([]place.Place, error) {
			return []place.Place{{ID: place.QualifiedID(source, req.Query), Name: req.Query, Source: source}}, nil
		},
	}
}

type detailStub struct {
	Func
}

func (d detailStub) Lookup(ctx context.Context, nativeID string) (place.Place, error) {
	return place.Place{ID: place.QualifiedID(d.Source, nativeID), Source: d.Source}, nil
}

func TestNewRegistry_RegistersAll(t *testing.T) {
	// Given: providers for two sources
	// When: building a registry
	reg, err := NewRegistry(stub(place.SourceMapbox), stub(place.SourceWhoosh))

	// Then: both are retrievable and listed in sorted order
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []place.Source{place.SourceMapbox, place.SourceWhoosh}, reg.Sources())

	p, ok := reg.Get(place.SourceMapbox)
	require.True(t, ok)
	assert.Equal(t, place.SourceMapbox, p.Name())
}

func TestRegistry_RejectsDuplicatesAndNil(t *testing.T) {
	_, err := NewRegistry(stub(place.SourceMapbox), stub(place.SourceMapbox))
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Register(nil), ErrNilProvider)
}

func TestRegistry_Details(t *testing.T) {
	reg, err := NewRegistry(stub(place.SourceWhoosh), detailStub{stub(place.SourceGooglePlaces)})
	require.NoError(t, err)

	dp, err := reg.Details(place.SourceGooglePlaces)
	require.NoError(t, err)
	got, err := dp.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "google_places:abc", got.ID)

	_, err = reg.Details(place.SourceWhoosh)
	assert.ErrorIs(t, err, ErrDetailsNotSupported)

	_, err = reg.Details(place.SourceMapbox)
	assert.ErrorIs(t, err, place.ErrUnknownSource)
}

func TestFunc_Search(t *testing.T) {
	places, err := stub(place.SourceWhoosh).Search(context.Background(), Request{Query: "cafe", Limit: 1})

	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "whoosh:cafe", places[0].ID)
}
