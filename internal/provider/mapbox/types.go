package mapbox

import "github.com/Aman-CERP/placesearch/pkg/place"

type suggestResponse struct {
	Suggestions []suggestion `json:"suggestions"`
	Attribution string       `json:"attribution"`
}

type suggestion struct {
	MapboxID       string   `json:"mapbox_id"`
	Name           string   `json:"name"`
	FeatureType    string   `json:"feature_type"`
	Address        string   `json:"address"`
	FullAddress    string   `json:"full_address"`
	PlaceFormatted string   `json:"place_formatted"`
	Maki           string   `json:"maki"`
	POICategory    []string `json:"poi_category"`
	Distance       *float64 `json:"distance"`
	Point          *point   `json:"point"`
}

type point struct {
	// Coordinates is [longitude, latitude].
	Coordinates []float64 `json:"coordinates"`
}

func (s suggestion) toPlace() place.Place {
	p := place.Place{
		ID:      place.QualifiedID(place.SourceMapbox, s.MapboxID),
		Name:    s.Name,
		Address: s.PlaceFormatted,
		Source:  place.SourceMapbox,
		Raw: map[string]any{
			"mapbox_id":    s.MapboxID,
			"feature_type": s.FeatureType,
		},
	}
	if s.Point != nil && len(s.Point.Coordinates) >= 2 {
		p.Coordinates = &place.Coordinates{
			Latitude:  s.Point.Coordinates[1],
			Longitude: s.Point.Coordinates[0],
		}
	}
	if s.FullAddress != "" {
		p.Raw["full_address"] = s.FullAddress
	}
	if s.Maki != "" {
		p.Raw["maki"] = s.Maki
	}
	if len(s.POICategory) > 0 {
		p.Raw["poi_category"] = s.POICategory
	}
	if s.Distance != nil {
		p.Raw["distance"] = *s.Distance
	}
	return p
}

type retrieveResponse struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	Geometry   *geometry  `json:"geometry"`
	Properties properties `json:"properties"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type properties struct {
	MapboxID       string         `json:"mapbox_id"`
	Name           string         `json:"name"`
	FeatureType    string         `json:"feature_type"`
	FullAddress    string         `json:"full_address"`
	PlaceFormatted string         `json:"place_formatted"`
	Coordinates    *coordinates   `json:"coordinates"`
	POICategory    []string       `json:"poi_category"`
	Maki           string         `json:"maki"`
	Metadata       map[string]any `json:"metadata"`
}

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (f feature) toPlace() place.Place {
	props := f.Properties
	p := place.Place{
		ID:      place.QualifiedID(place.SourceMapbox, props.MapboxID),
		Name:    props.Name,
		Address: props.FullAddress,
		Source:  place.SourceMapbox,
		Raw: map[string]any{
			"mapbox_id":    props.MapboxID,
			"feature_type": props.FeatureType,
		},
	}
	if p.Address == "" {
		p.Address = props.PlaceFormatted
	}

	switch {
	case props.Coordinates != nil:
		p.Coordinates = &place.Coordinates{
			Latitude:  props.Coordinates.Latitude,
			Longitude: props.Coordinates.Longitude,
		}
	case f.Geometry != nil && len(f.Geometry.Coordinates) >= 2:
		p.Coordinates = &place.Coordinates{
			Latitude:  f.Geometry.Coordinates[1],
			Longitude: f.Geometry.Coordinates[0],
		}
	}

	if props.Maki != "" {
		p.Raw["maki"] = props.Maki
	}
	if len(props.POICategory) > 0 {
		p.Raw["poi_category"] = props.POICategory
	}
	if len(props.Metadata) > 0 {
		p.Raw["metadata"] = props.Metadata
	}
	return p
}
