package search

import (
	"time"

	"github.com/Aman-CERP/placesearch/internal/cache"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Orchestrator defaults.
const (
	DefaultLimit                = 10
	DefaultMaxLimit             = 50
	DefaultProviderTimeout      = 3 * time.Second
	DefaultDedupToleranceMeters = 10.0
	DefaultStorageTimeout       = 10 * time.Second
	DefaultCircuitMaxFailures   = 5
	DefaultCircuitResetTimeout  = 30 * time.Second
)

// DefaultPriority is the merge order used when none is configured.
var DefaultPriority = []place.Source{
	place.SourceGooglePlaces,
	place.SourceMapbox,
	place.SourceWhoosh,
}

// Config tunes the orchestrator.
type Config struct {
	// DefaultLimit applies when a request leaves Limit at zero.
	DefaultLimit int

	// MaxLimit is the largest Limit a request may ask for.
	MaxLimit int

	// ProviderTimeout applies when a request leaves TimeoutPerProvider at zero.
	ProviderTimeout time.Duration

	// CacheTTL applies when a request leaves CacheTTL at zero.
	CacheTTL time.Duration

	// Priority is the merge order. Sources not listed follow in
	// place.AllSources order.
	Priority []place.Source

	// DedupToleranceMeters is how close two same-named places must be to merge.
	DedupToleranceMeters float64

	// StorageTimeout bounds each asynchronous write to the storage sink.
	StorageTimeout time.Duration

	// CircuitMaxFailures is how many consecutive timeouts or outages open a
	// provider's circuit. Zero disables circuit breaking.
	CircuitMaxFailures int

	// CircuitResetTimeout is how long an open circuit waits before probing.
	CircuitResetTimeout time.Duration
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:         DefaultLimit,
		MaxLimit:             DefaultMaxLimit,
		ProviderTimeout:      DefaultProviderTimeout,
		CacheTTL:             cache.DefaultTTL,
		Priority:             append([]place.Source(nil), DefaultPriority...),
		DedupToleranceMeters: DefaultDedupToleranceMeters,
		StorageTimeout:       DefaultStorageTimeout,
		CircuitMaxFailures:   DefaultCircuitMaxFailures,
		CircuitResetTimeout:  DefaultCircuitResetTimeout,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = d.ProviderTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if len(c.Priority) == 0 {
		c.Priority = d.Priority
	}
	if c.DedupToleranceMeters < 0 {
		c.DedupToleranceMeters = d.DedupToleranceMeters
	}
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = d.StorageTimeout
	}
	if c.CircuitResetTimeout <= 0 {
		c.CircuitResetTimeout = d.CircuitResetTimeout
	}
	return c
}
