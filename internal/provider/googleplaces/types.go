package googleplaces

import "github.com/Aman-CERP/placesearch/pkg/place"

type textSearchResponse struct {
	Results       []placeResult `json:"results"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
	NextPageToken string        `json:"next_page_token"`
}

type detailsResponse struct {
	Result       *placeResult `json:"result"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
}

type placeResult struct {
	PlaceID              string             `json:"place_id"`
	Name                 string             `json:"name"`
	FormattedAddress     string             `json:"formatted_address"`
	Vicinity             string             `json:"vicinity"`
	Geometry             *geometry          `json:"geometry"`
	Types                []string           `json:"types"`
	Rating               *float64           `json:"rating"`
	UserRatingsTotal     *int               `json:"user_ratings_total"`
	PriceLevel           *int               `json:"price_level"`
	BusinessStatus       string             `json:"business_status"`
	FormattedPhoneNumber string             `json:"formatted_phone_number"`
	Website              string             `json:"website"`
	OpeningHours         *openingHours      `json:"opening_hours"`
	AddressComponents    []addressComponent `json:"address_components"`
}

type geometry struct {
	Location location `json:"location"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type openingHours struct {
	OpenNow     *bool    `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (r placeResult) toPlace() place.Place {
	p := place.Place{
		ID:      place.QualifiedID(place.SourceGooglePlaces, r.PlaceID),
		Name:    r.Name,
		Address: r.FormattedAddress,
		Source:  place.SourceGooglePlaces,
		Raw: map[string]any{
			"place_id": r.PlaceID,
		},
	}
	if p.Address == "" {
		p.Address = r.Vicinity
	}
	if r.Geometry != nil {
		p.Coordinates = &place.Coordinates{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		}
	}

	if len(r.Types) > 0 {
		p.Raw["types"] = r.Types
	}
	if r.Rating != nil {
		p.Raw["rating"] = *r.Rating
	}
	if r.UserRatingsTotal != nil {
		p.Raw["user_ratings_total"] = *r.UserRatingsTotal
	}
	if r.PriceLevel != nil {
		p.Raw["price_level"] = *r.PriceLevel
	}
	if r.BusinessStatus != "" {
		p.Raw["business_status"] = r.BusinessStatus
	}
	if r.FormattedPhoneNumber != "" {
		p.Raw["formatted_phone_number"] = r.FormattedPhoneNumber
	}
	if r.Website != "" {
		p.Raw["website"] = r.Website
	}
	if r.OpeningHours != nil {
		hours := map[string]any{}
		if r.OpeningHours.OpenNow != nil {
			hours["open_now"] = *r.OpeningHours.OpenNow
		}
		if len(r.OpeningHours.WeekdayText) > 0 {
			hours["weekday_text"] = r.OpeningHours.WeekdayText
		}
		p.Raw["opening_hours"] = hours
	}
	if city := cityOf(r.AddressComponents); city != "" {
		p.Raw["city"] = city
	}
	return p
}

// cityOf prefers the locality and falls back to the second-level
// administrative area.
func cityOf(components []addressComponent) string {
	var fallback string
	for _, c := range components {
		for _, t := range c.Types {
			switch t {
			case "locality":
				return c.LongName
			case "administrative_area_level_2":
				if fallback == "" {
					fallback = c.LongName
				}
			}
		}
	}
	return fallback
}
