// Package mapbox implements the Mapbox Search Box place provider.
package mapbox

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/provider/transport"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

const (
	// DefaultBaseURL is the Search Box API root.
	DefaultBaseURL = "https://api.mapbox.com/search/searchbox/v1"

	// DefaultCountry restricts suggestions to one country.
	DefaultCountry = "US"

	// DefaultLanguage is the response language.
	DefaultLanguage = "en"

	// SessionTTL is how long a session token is reused.
	SessionTTL = 5 * time.Minute

	defaultLimit = 10
	maxLimit     = 10
)

// Client talks to the Search Box API. Safe for concurrent use.
type Client struct {
	token    string
	baseURL  string
	country  string
	language string

	transportOpts []transport.Option
	http          *transport.Client
	logger        *slog.Logger

	mu           sync.Mutex
	session      string
	sessionStart time.Time
	now          func() time.Time
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

// WithCountry sets the ISO country filter. Empty disables the filter.
func WithCountry(country string) Option {
	return func(c *Client) {
		c.country = country
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

// WithClock sets the clock used for session rotation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Mapbox client. The access token is required.
func NewClient(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New(errors.ErrCodeMissingAPIKey, "mapbox access token is required", nil).
			WithSuggestion("Set MAPBOX_ACCESS_TOKEN or providers.mapbox.access_token")
	}

	c := &Client{
		token:    token,
		baseURL:  DefaultBaseURL,
		country:  DefaultCountry,
		language: DefaultLanguage,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = transport.New(string(place.SourceMapbox),
		append(c.transportOpts, transport.WithLogger(c.logger))...)
	return c, nil
}

// Name returns the provider source.
func (c *Client) Name() place.Source {
	return place.SourceMapbox
}

// sessionToken returns the current session token, rotating it when stale.
func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.session == "" || now.Sub(c.sessionStart) >= SessionTTL {
		c.session = uuid.NewString()
		c.sessionStart = now
	}
	return c.session
}

// Search returns POI suggestions for the query.
func (c *Client) Search(ctx context.Context, req provider.Request) ([]place.Place, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("q", req.Query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("language", c.language)
	params.Set("types", "poi")
	params.Set("session_token", c.sessionToken())
	if c.country != "" {
		params.Set("country", c.country)
	}
	if req.Near != nil {
		params.Set("proximity", formatLngLat(*req.Near))
	}

	var resp suggestResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/suggest", params, &resp); err != nil {
		return nil, err
	}

	places := make([]place.Place, 0, len(resp.Suggestions))
	seenIDs := make(map[string]bool, len(resp.Suggestions))
	seenKeys := make(map[string]bool, len(resp.Suggestions))

	for _, s := range resp.Suggestions {
		if s.MapboxID == "" {
			continue
		}
		key := strings.ToLower(s.Name) + "|" + strings.ToLower(s.PlaceFormatted)
		if seenIDs[s.MapboxID] || seenKeys[key] {
			continue
		}
		seenIDs[s.MapboxID] = true
		seenKeys[key] = true

		places = append(places, s.toPlace())
	}

	c.logger.Debug("mapbox_search",
		slog.String("query", req.Query),
		slog.Int("suggestions", len(resp.Suggestions)),
		slog.Int("results", len(places)))

	return places, nil
}

// Lookup retrieves the full feature for a Mapbox ID.
func (c *Client) Lookup(ctx context.Context, nativeID string) (place.Place, error) {
	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("session_token", c.sessionToken())

	endpoint := c.baseURL + "/retrieve/" + url.PathEscape(nativeID)

	var resp retrieveResponse
	if err := c.http.GetJSON(ctx, endpoint, params, &resp); err != nil {
		if isNotFound(err) {
			return place.Place{}, notFound(nativeID)
		}
		return place.Place{}, err
	}
	if len(resp.Features) == 0 {
		return place.Place{}, notFound(nativeID)
	}

	p := resp.Features[0].toPlace()
	if p.ID == place.QualifiedID(place.SourceMapbox, "") {
		p.ID = place.QualifiedID(place.SourceMapbox, nativeID)
	}
	return p, nil
}

func isNotFound(err error) bool {
	var pe *errors.PlaceError
	if !stderrors.As(err, &pe) {
		return false
	}
	return pe.Details["status"] == strconv.Itoa(http.StatusNotFound)
}

func notFound(nativeID string) *errors.PlaceError {
	return errors.New(errors.ErrCodePlaceNotFound,
		fmt.Sprintf("mapbox place %s not found", nativeID), nil).
		WithDetail("id", place.QualifiedID(place.SourceMapbox, nativeID))
}

func formatLngLat(c place.Coordinates) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}
