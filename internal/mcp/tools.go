package mcp

import (
	"sort"

	perrors "github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Tool names.
const (
	ToolSearchPlaces   = "search_places"
	ToolGetPlace       = "get_place"
	ToolProviderStatus = "provider_status"
)

// SearchPlacesInput defines the input schema for the search_places tool.
type SearchPlacesInput struct {
	Query     string   `json:"query" jsonschema:"what to search for, e.g. coffee near the old port"`
	Providers []string `json:"providers,omitempty" jsonschema:"sources to query: whoosh, mapbox, google_places; empty means all"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of places, default 10"`
	Latitude  *float64 `json:"latitude,omitempty" jsonschema:"latitude to bias results towards; requires longitude"`
	Longitude *float64 `json:"longitude,omitempty" jsonschema:"longitude to bias results towards; requires latitude"`
	Refresh   bool     `json:"refresh,omitempty" jsonschema:"skip cached results"`
}

// SearchPlacesOutput defines the output schema for the search_places tool.
type SearchPlacesOutput struct {
	Places   []PlaceOutput     `json:"places" jsonschema:"merged places in priority order"`
	Warnings map[string]string `json:"warnings,omitempty" jsonschema:"providers that failed, with the reason"`
	CacheHit bool              `json:"cache_hit" jsonschema:"true if served from the result cache"`
}

// GetPlaceInput defines the input schema for the get_place tool.
type GetPlaceInput struct {
	ID string `json:"id" jsonschema:"provider-qualified place id, e.g. mapbox:dXJuOm1ieHBvaTo"`
}

// PlaceOutput is one place.
type PlaceOutput struct {
	ID        string         `json:"id" jsonschema:"provider-qualified place id"`
	Name      string         `json:"name"`
	Address   string         `json:"address,omitempty"`
	Source    string         `json:"source" jsonschema:"provider that returned the place"`
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	Details   map[string]any `json:"details,omitempty" jsonschema:"provider-specific attributes"`
}

// ProviderStatusInput defines the input schema for the provider_status tool (no parameters).
type ProviderStatusInput struct{}

// ProviderStatusOutput defines the output schema for the provider_status tool.
type ProviderStatusOutput struct {
	Providers []ProviderState `json:"providers"`
}

// ProviderState reports one configured provider.
type ProviderState struct {
	Name    string `json:"name"`
	Circuit string `json:"circuit" jsonschema:"closed, open or half-open"`
}

// ToPlaceOutput converts a place.
func ToPlaceOutput(p place.Place) PlaceOutput {
	out := PlaceOutput{
		ID:      p.ID,
		Name:    p.Name,
		Address: p.Address,
		Source:  string(p.Source),
		Details: p.Raw,
	}
	if p.Coordinates != nil {
		lat, lng := p.Coordinates.Latitude, p.Coordinates.Longitude
		out.Latitude = &lat
		out.Longitude = &lng
	}
	return out
}

func toWarnings(failures map[place.Source]*perrors.PlaceError) map[string]string {
	if len(failures) == 0 {
		return nil
	}
	warnings := make(map[string]string, len(failures))
	for src, f := range failures {
		warnings[string(src)] = string(f.Kind) + ": " + f.Message
	}
	return warnings
}

func sortedSources(sources []place.Source) []place.Source {
	out := append([]place.Source(nil), sources...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
