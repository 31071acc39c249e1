package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

func TestNew_BufferIsNotATerminal(t *testing.T) {
	w := New(&bytes.Buffer{})

	assert.False(t, w.Color())
}

func TestWriter_StatusLines(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	// When: printing each status kind
	w.Success("Indexed 3 places")
	w.Warningf("%s skipped", "mapbox")
	w.Error("failed")
	w.Status("", "indented")
	w.Statusf(">", "Index: %s", "/tmp/index")

	// Then: icons and messages appear unstyled
	out := buf.String()
	assert.Contains(t, out, "✓ Indexed 3 places\n")
	assert.Contains(t, out, "! mapbox skipped\n")
	assert.Contains(t, out, "✗ failed\n")
	assert.Contains(t, out, "   indented\n")
	assert.Contains(t, out, "> Index: /tmp/index\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriter_Places(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.Places([]place.Place{
		{
			ID: "mapbox:a", Name: "Blue Bottle", Address: "Oakland, CA", Source: place.SourceMapbox,
			Coordinates: &place.Coordinates{Latitude: 37.8044, Longitude: -122.2745},
		},
		{ID: "whoosh:b", Name: "Corner Cafe", Source: place.SourceWhoosh},
	})

	out := buf.String()
	assert.Contains(t, out, "1. Blue Bottle [mapbox]")
	assert.Contains(t, out, "   Oakland, CA")
	assert.Contains(t, out, "37.804400,-122.274500")
	assert.Contains(t, out, "2. Corner Cafe [whoosh]")
	assert.Equal(t, 1, strings.Count(out, "Oakland"))
}

func TestWriter_PlacesEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithColor(buf, false).Places(nil)

	assert.Equal(t, "No places found.\n", buf.String())
}

func TestWriter_PlaceShowsRawFieldsSorted(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.Place(place.Place{
		ID: "google_places:x", Name: "Tartine", Source: place.SourceGooglePlaces,
		Raw: map[string]any{"website": "https://tartine.example", "city": "San Francisco"},
	})

	out := buf.String()
	assert.Contains(t, out, "Tartine [google_places]")
	assert.Contains(t, out, "  id: google_places:x")
	assert.NotContains(t, out, "address:")
	assert.Less(t, strings.Index(out, "city:"), strings.Index(out, "website:"))
}

func TestWriter_Failures(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.Failures(map[place.Source]*errors.PlaceError{
		place.SourceMapbox:       errors.Timeout("mapbox", nil),
		place.SourceGooglePlaces: errors.RateLimited("google_places", "OVER_QUERY_LIMIT", nil),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "google_places unavailable (rate_limited): OVER_QUERY_LIMIT")
	assert.Contains(t, lines[1], "mapbox unavailable (timeout)")
}

func TestColorStyles_RenderText(t *testing.T) {
	s := ColorStyles()

	assert.Contains(t, s.Title.Render("x"), "x")
	assert.Equal(t, "x", PlainStyles().Title.Render("x"))
}
