package place

import (
	"math"
	"strings"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371008.8

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// NormalizeName folds case and collapses whitespace for name comparison.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// SamePlace reports whether a and b describe the same real-world place.
//
// Matching IDs are always the same place. Otherwise both names must match
// case-insensitively and both coordinates must be present and no more than
// toleranceMeters apart.
func SamePlace(a, b Place, toleranceMeters float64) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	if a.Coordinates == nil || b.Coordinates == nil {
		return false
	}
	if NormalizeName(a.Name) != NormalizeName(b.Name) {
		return false
	}
	return DistanceMeters(*a.Coordinates, *b.Coordinates) <= toleranceMeters
}
