package cache

import (
	"time"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Status describes where an entry is in its lifecycle.
type Status string

const (
	// StatusFresh entries are served to callers.
	StatusFresh Status = "fresh"
	// StatusStale entries are past ExpiresAt and will be removed on next access.
	StatusStale Status = "stale"
	// StatusEvicted entries have left the cache.
	StatusEvicted Status = "evicted"
)

// Entry is one cached search outcome.
type Entry struct {
	Key       Key
	Places    []place.Place
	CreatedAt time.Time
	ExpiresAt time.Time
	Status    Status
}

// expired reports whether the entry is past its expiry at now.
func (e Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// clone copies the places so callers never share state with the cache.
func (e Entry) clone() Entry {
	e.Places = place.CloneAll(e.Places)
	return e
}
