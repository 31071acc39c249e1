// Package googleplaces implements the Google Places (legacy web service)
// place provider: Text Search for queries and Place Details for lookups.
package googleplaces

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/provider/transport"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

const (
	// DefaultBaseURL is the Places API root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	// DefaultLanguage is the response language.
	DefaultLanguage = "en"

	// DefaultRadiusMeters biases text search around Request.Near.
	DefaultRadiusMeters = 5000

	defaultLimit = 10
)

// detailFields is requested from Place Details.
var detailFields = []string{
	"name",
	"formatted_address",
	"geometry",
	"place_id",
	"type",
	"rating",
	"formatted_phone_number",
	"opening_hours",
	"price_level",
	"website",
	"business_status",
	"address_component",
}

// Client talks to the Places API. Safe for concurrent use.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	radius   int

	transportOpts []transport.Option
	http          *transport.Client
	logger        *slog.Logger
}

var (
	_ provider.Provider       = (*Client)(nil)
	_ provider.DetailProvider = (*Client)(nil)
)

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLanguage sets the response language.
func WithLanguage(language string) Option {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
	}
}

// WithRadius sets the location bias radius in meters.
func WithRadius(meters int) Option {
	return func(c *Client) {
		if meters > 0 {
			c.radius = meters
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, transport.WithHTTPClient(httpClient))
	}
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, transport.WithRateLimit(rps))
	}
}

// WithRetry sets the retry policy for unavailable responses.
func WithRetry(cfg errors.RetryConfig) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, transport.WithRetry(cfg))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Google Places client. The API key is required.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New(errors.ErrCodeMissingAPIKey, "google places API key is required", nil).
			WithSuggestion("Set GOOGLE_PLACES_API_KEY or providers.google_places.api_key")
	}

	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		language: DefaultLanguage,
		radius:   DefaultRadiusMeters,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = transport.New(string(place.SourceGooglePlaces),
		append(c.transportOpts, transport.WithLogger(c.logger))...)
	return c, nil
}

// Name returns the provider source.
func (c *Client) Name() place.Source {
	return place.SourceGooglePlaces
}

// Search runs a Text Search and returns at most req.Limit places.
func (c *Client) Search(ctx context.Context, req provider.Request) ([]place.Place, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("key", c.apiKey)
	params.Set("language", c.language)
	if req.Near != nil {
		params.Set("location", formatLatLng(*req.Near))
		params.Set("radius", strconv.Itoa(c.radius))
	}

	var resp textSearchResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	places := make([]place.Place, 0, len(results))
	for _, r := range results {
		if r.PlaceID == "" {
			continue
		}
		places = append(places, r.toPlace())
	}

	c.logger.Debug("google_places_search",
		slog.String("query", req.Query),
		slog.String("status", resp.Status),
		slog.Int("results", len(places)))

	return places, nil
}

// Lookup fetches Place Details for a Google place ID.
func (c *Client) Lookup(ctx context.Context, nativeID string) (place.Place, error) {
	params := url.Values{}
	params.Set("place_id", nativeID)
	params.Set("fields", strings.Join(detailFields, ","))
	params.Set("key", c.apiKey)
	params.Set("language", c.language)

	var resp detailsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/details/json", params, &resp); err != nil {
		return place.Place{}, err
	}

	switch resp.Status {
	case statusNotFound, statusZeroResults:
		return place.Place{}, notFound(nativeID)
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return place.Place{}, err
	}
	if resp.Result == nil {
		return place.Place{}, notFound(nativeID)
	}

	p := resp.Result.toPlace()
	if p.ID == place.QualifiedID(place.SourceGooglePlaces, "") {
		p.ID = place.QualifiedID(place.SourceGooglePlaces, nativeID)
	}
	return p, nil
}

// Google reports failures in the body of an HTTP 200 response.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusRequestDenied  = "REQUEST_DENIED"
	statusInvalidRequest = "INVALID_REQUEST"
	statusUnknownError   = "UNKNOWN_ERROR"
	statusNotFound       = "NOT_FOUND"
)

// checkStatus maps a response status onto the failure taxonomy.
func (c *Client) checkStatus(status, message string) error {
	source := string(place.SourceGooglePlaces)

	describe := status
	if message != "" {
		describe += ": " + message
	}

	var err *errors.PlaceError
	switch status {
	case statusOK, statusZeroResults:
		return nil
	case statusOverQueryLimit:
		err = errors.RateLimited(source, describe, nil)
	case statusRequestDenied:
		err = errors.RequestError(source, describe, nil).
			WithSuggestion("Check the Google Places API key and that the Places API is enabled")
	case statusInvalidRequest:
		err = errors.RequestError(source, describe, nil)
	case statusUnknownError:
		err = errors.Unavailable(source, describe, nil)
	default:
		err = errors.Unavailable(source, fmt.Sprintf("unexpected status %q", describe), nil)
	}
	return err.WithDetail("status", status)
}

func notFound(nativeID string) *errors.PlaceError {
	return errors.New(errors.ErrCodePlaceNotFound,
		fmt.Sprintf("google place %s not found", nativeID), nil).
		WithDetail("id", place.QualifiedID(place.SourceGooglePlaces, nativeID))
}

func formatLatLng(c place.Coordinates) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
