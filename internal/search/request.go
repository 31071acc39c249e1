package search

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Request is one orchestrated search.
type Request struct {
	// Query is the search text. Blank queries are rejected.
	Query string

	// Providers selects the sources to query. Empty means all registered.
	Providers []place.Source

	// Limit caps the merged result. Zero uses the configured default.
	Limit int

	// TimeoutPerProvider bounds each provider call. Zero uses the configured default.
	TimeoutPerProvider time.Duration

	// CacheTTL is how long the merged result stays cached. Zero uses the configured default.
	CacheTTL time.Duration

	// Near optionally biases providers that support proximity.
	Near *place.Coordinates

	// Refresh skips the cache lookup; the result is still written back.
	Refresh bool
}

// Validate checks the request against the orchestrator limits.
// A blank query yields errors.ErrInvalidQuery; other problems are
// validation errors.
func (r Request) Validate(maxLimit int) error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.InvalidQuery(r.Query)
	}

	err := validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(maxLimit)),
		validation.Field(&r.TimeoutPerProvider, validation.Min(time.Duration(0))),
		validation.Field(&r.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&r.Providers, validation.Each(validation.By(knownSource))),
		validation.Field(&r.Near, validation.By(validCoordinates)),
	)
	if err != nil {
		return errors.ValidationError(fmt.Sprintf("invalid search request: %v", err), err)
	}
	return nil
}

func knownSource(value any) error {
	s, _ := value.(place.Source)
	if !s.IsKnown() {
		return fmt.Errorf("unknown provider %q", s)
	}
	return nil
}

func validCoordinates(value any) error {
	c, _ := value.(*place.Coordinates)
	if c == nil {
		return nil
	}
	return c.Validate()
}
