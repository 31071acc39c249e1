// Package place defines the normalized place record shared by every search
// provider, the result cache and the orchestrator.
package place

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Source identifies the provider a Place came from.
type Source string

const (
	// SourceWhoosh is the local full-text place index.
	SourceWhoosh Source = "whoosh"
	// SourceMapbox is Mapbox forward geocoding.
	SourceMapbox Source = "mapbox"
	// SourceGooglePlaces is Google Places text search.
	SourceGooglePlaces Source = "google_places"
)

// AllSources lists every known source in canonical (sorted) order.
var AllSources = []Source{SourceGooglePlaces, SourceMapbox, SourceWhoosh}

// ErrUnknownSource is returned by ParseSource for unrecognised names.
var ErrUnknownSource = errors.New("unknown place source")

// ParseSource converts a provider name into a Source.
// The legacy names "local", "local_database" and "google" are accepted.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "whoosh", "local", "local_database":
		return SourceWhoosh, nil
	case "mapbox":
		return SourceMapbox, nil
	case "google_places", "google":
		return SourceGooglePlaces, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// String returns the wire name of the source.
func (s Source) String() string {
	return string(s)
}

// IsKnown reports whether s is one of the defined sources.
func (s Source) IsKnown() bool {
	switch s {
	case SourceWhoosh, SourceMapbox, SourceGooglePlaces:
		return true
	}
	return false
}

// Coordinates is a WGS 84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// ErrInvalidCoordinates is returned when latitude or longitude is out of range.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// Validate checks that latitude is within [-90, 90] and longitude within [-180, 180].
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, c.Longitude)
	}
	return nil
}

// String formats the pair as "lat,lng" with fixed precision.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Place is a normalized search result.
type Place struct {
	// ID is provider-qualified: "<source>:<native id>".
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Coordinates is nil when the provider did not return a position.
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// Address is the formatted address, if any.
	Address string `json:"address,omitempty"`

	// Source records provenance.
	Source Source `json:"source"`

	// Raw holds provider-native fields. Never interpreted by the core.
	Raw map[string]any `json:"raw,omitempty"`
}

// QualifiedID builds a provider-qualified place ID.
func QualifiedID(source Source, nativeID string) string {
	return string(source) + ":" + nativeID
}

// SplitID splits a provider-qualified ID into its source and native ID.
func SplitID(id string) (Source, string, error) {
	prefix, native, ok := strings.Cut(id, ":")
	if !ok || native == "" {
		return "", "", fmt.Errorf("place id %q is not provider-qualified", id)
	}
	source, err := ParseSource(prefix)
	if err != nil {
		return "", "", err
	}
	return source, native, nil
}

// NativeID returns the provider-native part of the place ID.
func (p Place) NativeID() string {
	if _, native, ok := strings.Cut(p.ID, ":"); ok {
		return native
	}
	return p.ID
}

// Clone returns a copy of p that shares no mutable state with it.
// Raw is copied one level deep.
func (p Place) Clone() Place {
	if p.Coordinates != nil {
		c := *p.Coordinates
		p.Coordinates = &c
	}
	if p.Raw != nil {
		raw := make(map[string]any, len(p.Raw))
		for k, v := range p.Raw {
			raw[k] = v
		}
		p.Raw = raw
	}
	return p
}

// CloneAll clones every place in places. A nil slice stays nil.
func CloneAll(places []Place) []Place {
	if places == nil {
		return nil
	}
	out := make([]Place, len(places))
	for i, p := range places {
		out[i] = p.Clone()
	}
	return out
}
