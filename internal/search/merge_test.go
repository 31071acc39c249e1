package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

func at(source place.Source, id, name string, lat, lng float64) place.Place {
	return place.Place{
		ID:          place.QualifiedID(source, id),
		Name:        name,
		Source:      source,
		Coordinates: &place.Coordinates{Latitude: lat, Longitude: lng},
	}
}

func TestOrderSources(t *testing.T) {
	tests := []struct {
		name     string
		sources  []place.Source
		priority []place.Source
		want     []place.Source
	}{
		{
			name:     "default priority",
			sources:  []place.Source{place.SourceWhoosh, place.SourceMapbox, place.SourceGooglePlaces},
			priority: DefaultPriority,
			want:     []place.Source{place.SourceGooglePlaces, place.SourceMapbox, place.SourceWhoosh},
		},
		{
			name:     "unlisted sources follow in canonical order",
			sources:  []place.Source{place.SourceMapbox, place.SourceGooglePlaces, place.SourceWhoosh},
			priority: []place.Source{place.SourceWhoosh},
			want:     []place.Source{place.SourceWhoosh, place.SourceGooglePlaces, place.SourceMapbox},
		},
		{
			name:     "priority entries not selected are skipped",
			sources:  []place.Source{place.SourceMapbox},
			priority: DefaultPriority,
			want:     []place.Source{place.SourceMapbox},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderSources(tt.sources, tt.priority))
		})
	}
}

func TestMerge_DedupRules(t *testing.T) {
	results := map[place.Source][]place.Place{
		place.SourceGooglePlaces: {
			at(place.SourceGooglePlaces, "1", "Joe's Pizza", 40.73060, -73.98900),
		},
		place.SourceMapbox: {
			// 3 m away, same name in different case: duplicate
			at(place.SourceMapbox, "a", "JOE'S  PIZZA", 40.73063, -73.98900),
			// same name, 200 m away: distinct
			at(place.SourceMapbox, "b", "Joe's Pizza", 40.73240, -73.98900),
		},
		place.SourceWhoosh: {
			// different name at the same spot: distinct
			at(place.SourceWhoosh, "x", "Joe's Coffee", 40.73060, -73.98900),
			// no coordinates: kept
			{ID: "whoosh:y", Name: "Joe's Pizza", Source: place.SourceWhoosh},
			// duplicate ID within one provider
			{ID: "whoosh:y", Name: "Joe's Pizza again", Source: place.SourceWhoosh},
		},
	}

	merged := Merge(results, DefaultPriority, 10, 0)

	assert.Equal(t, []string{
		"google_places:1",
		"mapbox:b",
		"whoosh:x",
		"whoosh:y",
	}, ids(merged))
}

func TestMerge_TruncatesAfterDedup(t *testing.T) {
	results := map[place.Source][]place.Place{
		place.SourceGooglePlaces: {at(place.SourceGooglePlaces, "1", "A", 1, 1)},
		place.SourceMapbox: {
			at(place.SourceMapbox, "1", "A", 1, 1),
			at(place.SourceMapbox, "2", "B", 2, 2),
			at(place.SourceMapbox, "3", "C", 3, 3),
		},
	}

	merged := Merge(results, DefaultPriority, 10, 2)

	assert.Equal(t, []string{"google_places:1", "mapbox:2"}, ids(merged))
}

func TestMerge_ZeroToleranceOnlyExactPositions(t *testing.T) {
	results := map[place.Source][]place.Place{
		place.SourceGooglePlaces: {at(place.SourceGooglePlaces, "1", "A", 1, 1)},
		place.SourceMapbox: {
			at(place.SourceMapbox, "1", "A", 1, 1),
			at(place.SourceMapbox, "2", "A", 1.00001, 1),
		},
	}

	merged := Merge(results, DefaultPriority, 0, 0)

	assert.Equal(t, []string{"google_places:1", "mapbox:2"}, ids(merged))
}

func TestMerge_EmptyInput(t *testing.T) {
	merged := Merge(nil, DefaultPriority, 10, 5)

	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func ids(places []place.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.ID
	}
	return out
}
