package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/placesearch/internal/cache"
	"github.com/Aman-CERP/placesearch/internal/config"
	"github.com/Aman-CERP/placesearch/internal/provider/googleplaces"
	"github.com/Aman-CERP/placesearch/internal/provider/local"
	"github.com/Aman-CERP/placesearch/internal/provider/mapbox"
	"github.com/Aman-CERP/placesearch/internal/search"
	"github.com/Aman-CERP/placesearch/internal/storage"
	"github.com/Aman-CERP/placesearch/internal/telemetry"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

// app is the wired search stack built from configuration.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	cache        *cache.LRU
	metrics      *telemetry.Metrics
	orchestrator *search.Orchestrator
	index        *local.Index
	storage      storage.PlaceStorage
}

// newApp builds providers, cache, storage and orchestrator from cfg.
// Remote providers that are enabled but have no credentials are skipped
// with a warning.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, storage: storage.Nop{}}

	providers, err := a.buildProviders()
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(providers) == 0 {
		a.Close()
		return nil, fmt.Errorf("no providers available: enable the local index or configure MAPBOX_ACCESS_TOKEN / GOOGLE_PLACES_API_KEY")
	}

	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Storage.Enabled {
		store, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.storage = store
	}

	a.cache = cache.NewLRU(cfg.Cache.Capacity,
		cache.WithDefaultTTL(cfg.Cache.TTL),
		cache.WithLogger(logger))

	a.metrics = telemetry.New(telemetry.DefaultConfig())

	opts := []search.Option{
		search.WithCache(a.cache),
		search.WithMetrics(a.metrics),
		search.WithConfig(searchConfig(cfg)),
		search.WithLogger(logger),
	}
	if cfg.Storage.Enabled {
		opts = append(opts, search.WithSink(a.storage))
	}

	a.orchestrator, err = search.NewOrchestrator(registry, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("app_ready",
		slog.Any("providers", registry.Sources()),
		slog.Bool("storage", cfg.Storage.Enabled))
	return a, nil
}

func (a *app) buildProviders() ([]provider.Provider, error) {
	var providers []provider.Provider
	pc := a.cfg.Providers

	if pc.Whoosh.Enabled {
		idx, err := local.Open(pc.Whoosh.IndexPath, local.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.index = idx
		providers = append(providers, idx)
	}

	if pc.Mapbox.Enabled {
		if pc.Mapbox.AccessToken == "" {
			a.logger.Warn("provider_skipped", slog.String("provider", "mapbox"), slog.String("reason", "no access token"))
		} else {
			opts := []mapbox.Option{
				mapbox.WithCountry(pc.Mapbox.Country),
				mapbox.WithLanguage(pc.Mapbox.Language),
				mapbox.WithRateLimit(pc.Mapbox.RateLimit),
				mapbox.WithLogger(a.logger),
			}
			if pc.Mapbox.BaseURL != "" {
				opts = append(opts, mapbox.WithBaseURL(pc.Mapbox.BaseURL))
			}
			c, err := mapbox.NewClient(pc.Mapbox.AccessToken, opts...)
			if err != nil {
				return nil, err
			}
			providers = append(providers, c)
		}
	}

	if pc.GooglePlaces.Enabled {
		if pc.GooglePlaces.APIKey == "" {
			a.logger.Warn("provider_skipped", slog.String("provider", "google_places"), slog.String("reason", "no API key"))
		} else {
			opts := []googleplaces.Option{
				googleplaces.WithLanguage(pc.GooglePlaces.Language),
				googleplaces.WithRadius(pc.GooglePlaces.RadiusMeters),
				googleplaces.WithRateLimit(pc.GooglePlaces.RateLimit),
				googleplaces.WithLogger(a.logger),
			}
			if pc.GooglePlaces.BaseURL != "" {
				opts = append(opts, googleplaces.WithBaseURL(pc.GooglePlaces.BaseURL))
			}
			c, err := googleplaces.NewClient(pc.GooglePlaces.APIKey, opts...)
			if err != nil {
				return nil, err
			}
			providers = append(providers, c)
		}
	}

	return providers, nil
}

// Close waits for pending storage writes and releases the index and database.
func (a *app) Close() {
	if a.orchestrator != nil {
		_ = a.orchestrator.Close()
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("storage_close_failed", slog.String("error", err.Error()))
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("index_close_failed", slog.String("error", err.Error()))
		}
	}
}

func searchConfig(cfg *config.Config) search.Config {
	return search.Config{
		DefaultLimit:         cfg.Search.DefaultLimit,
		MaxLimit:             cfg.Search.MaxLimit,
		ProviderTimeout:      cfg.Search.ProviderTimeout,
		CacheTTL:             cfg.Cache.TTL,
		Priority:             cfg.PrioritySources(),
		DedupToleranceMeters: cfg.Search.DedupToleranceMeters,
		StorageTimeout:       cfg.Search.StorageTimeout,
		CircuitMaxFailures:   cfg.Search.CircuitMaxFailures,
		CircuitResetTimeout:  cfg.Search.CircuitResetTimeout,
	}
}
