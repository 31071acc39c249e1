package search

import (
	"sort"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// orderSources returns sources sorted by priority. Sources missing from
// priority keep place.AllSources order after the listed ones, and any
// source unknown to both follows in its original position.
func orderSources(sources []place.Source, priority []place.Source) []place.Source {
	selected := make(map[place.Source]bool, len(sources))
	for _, s := range sources {
		selected[s] = true
	}

	ordered := make([]place.Source, 0, len(sources))
	emit := func(list []place.Source) {
		for _, s := range list {
			if selected[s] {
				ordered = append(ordered, s)
				delete(selected, s)
			}
		}
	}
	emit(priority)
	emit(place.AllSources)
	emit(sources)
	return ordered
}

// Merge combines per-source results into one list.
//
// Sources are visited in priority order and each source's places in the
// order the provider returned them. A place is dropped when an earlier one
// has the same ID, or the same case-insensitive name within
// toleranceMeters. The result is truncated to limit when limit > 0.
//
// The output depends only on the inputs and priority, never on the order in
// which providers completed.
func Merge(results map[place.Source][]place.Place, priority []place.Source, toleranceMeters float64, limit int) []place.Place {
	sources := make([]place.Source, 0, len(results))
	for s := range results {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	merged := make([]place.Place, 0)
	seen := make(map[string]struct{})

	for _, src := range orderSources(sources, priority) {
		for _, p := range results[src] {
			if limit > 0 && len(merged) >= limit {
				return merged
			}
			if p.ID != "" {
				if _, dup := seen[p.ID]; dup {
					continue
				}
			}
			if isNearDuplicate(merged, p, toleranceMeters) {
				continue
			}
			if p.ID != "" {
				seen[p.ID] = struct{}{}
			}
			merged = append(merged, p)
		}
	}
	return merged
}

func isNearDuplicate(kept []place.Place, candidate place.Place, toleranceMeters float64) bool {
	for _, k := range kept {
		if place.SamePlace(k, candidate, toleranceMeters) {
			return true
		}
	}
	return false
}
