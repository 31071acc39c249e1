package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/provider/local"
	"github.com/Aman-CERP/placesearch/internal/storage"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

func TestIndexCmd_SeedFile(t *testing.T) {
	// Given: a seed file with three places
	env := newTestEnv(t)
	seed := env.writeFile(t, "seed.yaml", seedYAML)

	// When: indexing it
	out, err := env.run(t, "index", "--seed", seed)

	// Then: every place is indexed
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 of 3 places")
	assert.Contains(t, out, env.indexPath)

	idx, err := local.Open(env.indexPath)
	require.NoError(t, err)
	defer idx.Close()
	p, err := idx.Lookup(context.Background(), "fairmount")
	require.NoError(t, err)
	assert.Equal(t, "Fairmount Bagel", p.Name)
	assert.Equal(t, "bakery", p.Raw["category"])
}

func TestIndexCmd_RebuildDropsOldPlaces(t *testing.T) {
	// Given: an index built from the full seed
	env := newTestEnv(t)
	_, err := env.run(t, "index", "--seed", env.writeFile(t, "seed.yaml", seedYAML))
	require.NoError(t, err)

	// When: rebuilding from a smaller seed
	small := env.writeFile(t, "small.yaml", "- id: only\n  name: Only Place\n")
	_, err = env.run(t, "index", "--seed", small, "--rebuild")
	require.NoError(t, err)

	// Then: only the new place remains
	idx, err := local.Open(env.indexPath)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestIndexCmd_FromStorage(t *testing.T) {
	// Given: a storage database holding a Mapbox place
	env := newTestEnv(t)
	store, err := storage.OpenSQLite(env.dbPath)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), []place.Place{{
		ID: "mapbox:poi.1", Name: "Olimpico Cafe", Source: place.SourceMapbox,
		Coordinates: &place.Coordinates{Latitude: 45.5231, Longitude: -73.6006},
	}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// When: indexing without a seed
	out, err := env.run(t, "index")

	// Then: the stored place becomes a local place that remembers its origin
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 of 1 places")

	out, err = env.run(t, "search", "olimpico", "--provider", "whoosh")
	require.NoError(t, err)
	assert.Contains(t, out, "Olimpico Cafe [whoosh]")
}

func TestIndexCmd_NoStorageSuggestsSeed(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "index")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--seed")
}

func TestIndexCmd_Locked(t *testing.T) {
	// Given: another holder of the index write lock
	env := newTestEnv(t)
	lock := local.NewWriteLock(env.indexPath)
	require.NoError(t, lock.TryLock())
	defer lock.Unlock()

	// When: indexing
	_, err := env.run(t, "index", "--seed", env.writeFile(t, "seed.yaml", seedYAML))

	// Then: it fails with the lock error
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexLocked, errors.GetCode(err))
}

func TestIndexCmd_IndexPathFlag(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "other-index")

	out, err := env.run(t, "index", "--seed", env.writeFile(t, "seed.yaml", seedYAML), "--index-path", other)

	require.NoError(t, err)
	assert.Contains(t, out, other)
	assert.NoDirExists(t, env.indexPath)
}

func TestReadSeedFile(t *testing.T) {
	env := newTestEnv(t)

	t.Run("yaml with details and generated ids", func(t *testing.T) {
		places, err := readSeedFile(env.writeFile(t, "seed.yaml", seedYAML))

		require.NoError(t, err)
		require.Len(t, places, 3)
		assert.Equal(t, "whoosh:fairmount", places[0].ID)
		assert.Equal(t, place.SourceWhoosh, places[0].Source)
		require.NotNil(t, places[0].Coordinates)
		assert.InDelta(t, 45.5229, places[0].Coordinates.Latitude, 1e-9)
		assert.Equal(t, map[string]any{"category": "bakery"}, places[0].Raw)
		assert.Nil(t, places[1].Raw)
		assert.Equal(t, "whoosh:seed-3", places[2].ID)
		assert.Nil(t, places[2].Coordinates)
	})

	t.Run("json input", func(t *testing.T) {
		places, err := readSeedFile(env.writeFile(t, "seed.json",
			`[{"id": "a", "name": "Cafe A", "latitude": 1.5, "longitude": 2.5}]`))

		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "Cafe A", places[0].Name)
		assert.InDelta(t, 2.5, places[0].Coordinates.Longitude, 1e-9)
	})

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "- id: x\n  address: nowhere\n", "name is required"},
		{"half coordinates", "- name: Half\n  latitude: 10\n", "together"},
		{"bad latitude", "- name: North\n  latitude: 91\n  longitude: 0\n", "North"},
		{"not a list", "name: Single\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readSeedFile(env.writeFile(t, "bad.yaml", tt.content))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := readSeedFile(filepath.Join(env.dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLocalCopy(t *testing.T) {
	t.Run("uses storage id", func(t *testing.T) {
		p := place.Place{
			ID: "mapbox:poi.1", Name: "Cafe", Source: place.SourceMapbox,
			Raw: map[string]any{"storage_id": "ABC-123"},
		}

		c := localCopy(p)

		assert.Equal(t, "whoosh:ABC-123", c.ID)
		assert.Equal(t, place.SourceWhoosh, c.Source)
		assert.Equal(t, "mapbox", c.Raw["origin_source"])
		assert.Equal(t, "mapbox:poi.1", c.Raw["origin_id"])
		assert.NotContains(t, p.Raw, "origin_source")
	})

	t.Run("falls back to source and native id", func(t *testing.T) {
		c := localCopy(place.Place{ID: "google_places:xyz", Name: "Cafe", Source: place.SourceGooglePlaces})

		assert.Equal(t, "whoosh:google_places-xyz", c.ID)
	})
}
