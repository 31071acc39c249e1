package server

import (
	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// FeatureCollection is a GeoJSON feature collection with search metadata.
type FeatureCollection struct {
	Type     string                      `json:"type"`
	Features []Feature                   `json:"features"`
	Warnings map[string]errors.JSONError `json:"warnings,omitempty"`
	CacheHit bool                        `json:"cache_hit"`
}

// Feature is one place as a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   *Point         `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewFeature converts a place. Places without coordinates get a null
// geometry. Raw attributes never override the core properties.
func NewFeature(p place.Place) Feature {
	props := make(map[string]any, len(p.Raw)+4)
	for k, v := range p.Raw {
		props[k] = v
	}
	props["name"] = p.Name
	props["address"] = p.Address
	props["place_id"] = p.ID
	props["source"] = string(p.Source)

	f := Feature{Type: "Feature", ID: p.ID, Properties: props}
	if p.Coordinates != nil {
		f.Geometry = &Point{
			Type:        "Point",
			Coordinates: [2]float64{p.Coordinates.Longitude, p.Coordinates.Latitude},
		}
	}
	return f
}

// NewFeatureCollection converts search output.
func NewFeatureCollection(places []place.Place, failures map[place.Source]*errors.PlaceError, cacheHit bool) FeatureCollection {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(places)),
		CacheHit: cacheHit,
	}
	for _, p := range places {
		fc.Features = append(fc.Features, NewFeature(p))
	}
	if len(failures) > 0 {
		fc.Warnings = make(map[string]errors.JSONError, len(failures))
		for src, f := range failures {
			fc.Warnings[string(src)] = errors.ToJSON(f)
		}
	}
	return fc
}
