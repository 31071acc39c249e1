package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/server"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// seededEnv returns an environment whose local index holds seedYAML.
func seededEnv(t *testing.T) testEnv {
	t.Helper()
	env := newTestEnv(t)
	_, err := env.run(t, "index", "--seed", env.writeFile(t, "seed.yaml", seedYAML))
	require.NoError(t, err)
	return env
}

func TestSearchCmd_PlainOutput(t *testing.T) {
	// Given: an indexed seed
	env := seededEnv(t)

	// When: searching
	out, err := env.run(t, "search", "bagel")

	// Then: both bagel shops are listed with their ids
	require.NoError(t, err)
	assert.Contains(t, out, "Fairmount Bagel [whoosh]")
	assert.Contains(t, out, "St-Viateur Bagel [whoosh]")
	assert.Contains(t, out, "whoosh:fairmount")
	assert.NotContains(t, out, "Jean-Talon")
}

func TestSearchCmd_GeoJSON(t *testing.T) {
	env := seededEnv(t)

	out, err := env.run(t, "search", "jean", "talon", "--provider", "whoosh", "--json")
	require.NoError(t, err)

	var fc server.FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "whoosh:seed-3", fc.Features[0].ID)
	assert.Nil(t, fc.Features[0].Geometry)
	assert.Equal(t, "Jean-Talon Market", fc.Features[0].Properties["name"])
	assert.False(t, fc.CacheHit)
}

func TestSearchCmd_LimitAndNear(t *testing.T) {
	env := seededEnv(t)

	out, err := env.run(t, "search", "bagel", "--limit", "1", "--near", "45.52,-73.60", "--json")
	require.NoError(t, err)

	var fc server.FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Len(t, fc.Features, 1)
}

func TestSearchCmd_NoMatches(t *testing.T) {
	env := seededEnv(t)

	out, err := env.run(t, "search", "sushi")

	require.NoError(t, err)
	assert.Contains(t, out, "No places found.")
}

func TestSearchCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
		want string
	}{
		{name: "unknown provider", args: []string{"search", "cafe", "--provider", "yelp"}, want: "yelp"},
		{name: "provider not configured", args: []string{"search", "cafe", "--provider", "mapbox"}, code: errors.ErrCodeUnknownProvider},
		{name: "blank query", args: []string{"search", "  "}, code: errors.ErrCodeInvalidQuery},
		{name: "limit above max", args: []string{"search", "cafe", "--limit", "500"}, code: errors.ErrCodeInvalidInput},
		{name: "bad near", args: []string{"search", "cafe", "--near", "north"}, want: "lat,lng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.run(t, tt.args...)

			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, errors.GetCode(err))
			}
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestSearchCmd_NoProviders(t *testing.T) {
	// Given: every provider disabled
	env := newTestEnv(t)
	env.writeProjectConfig(t, `
providers:
  whoosh:
    enabled: false
  mapbox:
    enabled: false
  google_places:
    enabled: false
`)

	// When: searching
	_, err := env.run(t, "search", "cafe")

	// Then: the error says how to get a provider
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers available")
}

func TestPlaceCmd(t *testing.T) {
	env := seededEnv(t)

	t.Run("plain", func(t *testing.T) {
		out, err := env.run(t, "place", "whoosh:fairmount")

		require.NoError(t, err)
		assert.Contains(t, out, "Fairmount Bagel [whoosh]")
		assert.Contains(t, out, "category: bakery")
		assert.Contains(t, out, "74 Av. Fairmount O")
	})

	t.Run("geojson", func(t *testing.T) {
		out, err := env.run(t, "place", "whoosh:stviateur", "--json")
		require.NoError(t, err)

		var f server.Feature
		require.NoError(t, json.Unmarshal([]byte(out), &f))
		require.NotNil(t, f.Geometry)
		assert.InDelta(t, -73.6024, f.Geometry.Coordinates[0], 1e-9)
		assert.InDelta(t, 45.5226, f.Geometry.Coordinates[1], 1e-9)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.run(t, "place", "whoosh:missing")

		require.Error(t, err)
		assert.Equal(t, errors.ErrCodePlaceNotFound, errors.GetCode(err))
	})

	t.Run("unqualified id", func(t *testing.T) {
		_, err := env.run(t, "place", "fairmount")

		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
	})
}

func TestParseLatLng(t *testing.T) {
	c, err := parseLatLng(" 45.5 , -73.6 ")
	require.NoError(t, err)
	assert.Equal(t, &place.Coordinates{Latitude: 45.5, Longitude: -73.6}, c)

	for _, in := range []string{"45.5", "north,-73", "45,west", "95,0", "0,200"} {
		_, err := parseLatLng(in)
		assert.Error(t, err, in)
	}
}

func TestSearchOptions_Request(t *testing.T) {
	opts := searchOptions{providers: []string{"mapbox", "whoosh"}, limit: 3, refresh: true, near: "1,2"}

	req, err := opts.request("cafe")

	require.NoError(t, err)
	assert.Equal(t, "cafe", req.Query)
	assert.Equal(t, []place.Source{place.SourceMapbox, place.SourceWhoosh}, req.Providers)
	assert.Equal(t, 3, req.Limit)
	assert.True(t, req.Refresh)
	require.NotNil(t, req.Near)
	assert.Equal(t, 2.0, req.Near.Longitude)
}
