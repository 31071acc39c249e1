package cache

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// noLocation is the Near component of keys built without a proximity bias.
const noLocation = "no-loc"

// Key identifies one cached search. It is comparable and safe to use as a
// map key. Build keys with NewKey so equivalent requests collide.
type Key struct {
	Query     string
	Providers string
	Near      string
}

// NewKey builds a normalized cache key.
//
// The query is trimmed and case-folded; providers are deduplicated and
// sorted so the same set in any order yields the same key.
func NewKey(query string, providers []place.Source, near *place.Coordinates) Key {
	return Key{
		Query:     NormalizeQuery(query),
		Providers: canonicalProviders(providers),
		Near:      nearComponent(near),
	}
}

// NormalizeQuery trims surrounding whitespace and case-folds the query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// String renders the key for logs.
func (k Key) String() string {
	return k.Query + "|" + k.Providers + "|" + k.Near
}

func canonicalProviders(providers []place.Source) string {
	seen := make(map[place.Source]struct{}, len(providers))
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func nearComponent(near *place.Coordinates) string {
	if near == nil {
		return noLocation
	}
	return near.String()
}
