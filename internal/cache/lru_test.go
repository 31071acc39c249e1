package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func samplePlaces(names ...string) []place.Place {
	places := make([]place.Place, 0, len(names))
	for _, n := range names {
		places = append(places, place.Place{
			ID:          place.QualifiedID(place.SourceMapbox, n),
			Name:        n,
			Source:      place.SourceMapbox,
			Coordinates: &place.Coordinates{Latitude: 40.7, Longitude: -74.0},
			Raw:         map[string]any{"name": n},
		})
	}
	return places
}

func TestNewKey_Normalizes(t *testing.T) {
	a := NewKey("  Coffee Shop ", []place.Source{place.SourceMapbox, place.SourceGooglePlaces}, nil)
	b := NewKey("coffee shop", []place.Source{place.SourceGooglePlaces, place.SourceMapbox, place.SourceMapbox}, nil)

	assert.Equal(t, a, b)
	assert.Equal(t, "coffee shop|google_places,mapbox|no-loc", a.String())
}

func TestNewKey_NearIsPartOfKey(t *testing.T) {
	providers := []place.Source{place.SourceMapbox}
	near := &place.Coordinates{Latitude: 40.7128, Longitude: -74.006}

	assert.NotEqual(t, NewKey("pizza", providers, nil), NewKey("pizza", providers, near))
	assert.Equal(t, NewKey("pizza", providers, near), NewKey("PIZZA", providers, &place.Coordinates{Latitude: 40.7128, Longitude: -74.006}))
}

func TestLRU_PutGet_RoundTrip(t *testing.T) {
	// Given: a cache with one entry
	clock := newFakeClock()
	c := NewLRU(10, WithClock(clock.Now))
	key := NewKey("cafe", []place.Source{place.SourceMapbox}, nil)
	require.NoError(t, c.Put(key, samplePlaces("a", "b"), time.Minute))

	// When: reading it back
	e, ok, err := c.Get(key)

	// Then: the entry is fresh and ordered
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusFresh, e.Status)
	assert.Equal(t, clock.Now(), e.CreatedAt)
	assert.Equal(t, clock.Now().Add(time.Minute), e.ExpiresAt)
	require.Len(t, e.Places, 2)
	assert.Equal(t, "a", e.Places[0].Name)
	assert.Equal(t, "b", e.Places[1].Name)
}

func TestLRU_ValuesAreCopied(t *testing.T) {
	c := NewLRU(10)
	key := NewKey("cafe", nil, nil)
	places := samplePlaces("a")
	require.NoError(t, c.Put(key, places, time.Minute))

	// Mutating the caller's slice after Put must not leak in.
	places[0].Name = "mutated"
	places[0].Raw["name"] = "mutated"

	e, ok, _ := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "a", e.Places[0].Name)
	assert.Equal(t, "a", e.Places[0].Raw["name"])

	// Mutating a returned entry must not leak back.
	e.Places[0].Coordinates.Latitude = 0
	again, _, _ := c.Get(key)
	assert.Equal(t, 40.7, again.Places[0].Coordinates.Latitude)
}

func TestLRU_ExpiredEntryIsAbsentAndRemoved(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU(10, WithClock(clock.Now))
	key := NewKey("cafe", nil, nil)
	require.NoError(t, c.Put(key, samplePlaces("a"), time.Minute))

	// When: time passes beyond the TTL
	clock.Advance(time.Minute + time.Second)

	// Then: Inspect sees a stale entry, Get treats it as absent and removes it
	e, ok := c.Inspect(key)
	require.True(t, ok)
	assert.Equal(t, StatusStale, e.Status)

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Expirations)
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestLRU_ExactlyOneEvictionOnOverflow(t *testing.T) {
	// Given: a cache of capacity N filled with N distinct keys
	const n = 5
	var evicted []Entry
	c := NewLRU(n, WithEvictHook(func(e Entry) { evicted = append(evicted, e) }))

	keys := make([]Key, 0, n+1)
	for i := 0; i <= n; i++ {
		keys = append(keys, NewKey(fmt.Sprintf("query %d", i), nil, nil))
	}
	for i := 0; i < n; i++ {
		require.NoError(t, c.Put(keys[i], samplePlaces("x"), time.Hour))
	}

	// And: key 0 is touched so key 1 becomes least recently used
	_, ok, _ := c.Get(keys[0])
	require.True(t, ok)

	// When: the (N+1)th key is inserted
	require.NoError(t, c.Put(keys[n], samplePlaces("y"), time.Hour))

	// Then: exactly one entry, the least recently used, was evicted
	require.Len(t, evicted, 1)
	assert.Equal(t, keys[1], evicted[0].Key)
	assert.Equal(t, StatusEvicted, evicted[0].Status)
	assert.Equal(t, n, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	_, ok, _ = c.Get(keys[1])
	assert.False(t, ok)
	_, ok, _ = c.Get(keys[0])
	assert.True(t, ok)
}

func TestLRU_PutReplacesWithoutEviction(t *testing.T) {
	c := NewLRU(2)
	key := NewKey("cafe", nil, nil)

	require.NoError(t, c.Put(key, samplePlaces("old"), time.Hour))
	require.NoError(t, c.Put(key, samplePlaces("new"), time.Hour))

	e, ok, _ := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new", e.Places[0].Name)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestLRU_DefaultTTLWhenNotPositive(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU(2, WithClock(clock.Now), WithDefaultTTL(10*time.Minute))
	key := NewKey("cafe", nil, nil)

	require.NoError(t, c.Put(key, nil, 0))

	e, ok := c.Inspect(key)
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Minute), e.ExpiresAt)
	assert.NotNil(t, e.Places)
}

func TestLRU_EvictExpired(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU(10, WithClock(clock.Now))

	require.NoError(t, c.Put(NewKey("short", nil, nil), samplePlaces("a"), time.Minute))
	require.NoError(t, c.Put(NewKey("long", nil, nil), samplePlaces("b"), time.Hour))

	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.EvictExpired())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Inspect(NewKey("long", nil, nil))
	assert.True(t, ok)
}

func TestLRU_StartSweeper(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU(10, WithClock(clock.Now))
	require.NoError(t, c.Put(NewKey("cafe", nil, nil), samplePlaces("a"), time.Minute))
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRU_StatsCountHitsAndMisses(t *testing.T) {
	c := NewLRU(10)
	key := NewKey("cafe", nil, nil)

	_, _, _ = c.Get(key)
	require.NoError(t, c.Put(key, samplePlaces("a"), time.Hour))
	_, _, _ = c.Get(key)
	_, _, _ = c.Get(key)

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Len)
	assert.Equal(t, 10, s.Capacity)
}

func TestLRU_Purge(t *testing.T) {
	c := NewLRU(10)
	require.NoError(t, c.Put(NewKey("a", nil, nil), samplePlaces("a"), time.Hour))
	require.NoError(t, c.Put(NewKey("b", nil, nil), samplePlaces("b"), time.Hour))

	c.Purge()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU(50)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := NewKey(fmt.Sprintf("q%d", (g*7+i)%80), nil, nil)
				if i%3 == 0 {
					_ = c.Put(key, samplePlaces("p"), time.Hour)
				} else {
					_, _, _ = c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

func TestNewLRU_NonPositiveCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewLRU(0).Stats().Capacity)
}
