package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/placesearch/internal/cache"
	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/telemetry"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

// ErrNoProviders is returned when an orchestrator is built without providers.
var ErrNoProviders = stderrors.New("at least one provider is required")

// Sink receives places after successful searches. Save runs asynchronously;
// its errors are logged and never reach the caller.
type Sink interface {
	Save(ctx context.Context, places []place.Place) (int, error)
}

// Result is the outcome of a search.
type Result struct {
	// Places is the merged, deduplicated, truncated result.
	Places []place.Place

	// PartialFailures records providers that failed while others succeeded.
	PartialFailures map[place.Source]*errors.PlaceError

	// CacheHit is true when no provider was called.
	CacheHit bool
}

// Orchestrator fans a query out to providers, merges their answers and
// caches the outcome.
//
// Thread-safe for concurrent use. The only shared mutable state is the
// cache; providers are called concurrently and never serialized.
type Orchestrator struct {
	registry *provider.Registry
	cache    cache.Store
	sink     Sink
	metrics  *telemetry.Metrics
	config   Config
	logger   *slog.Logger

	breakers map[place.Source]*errors.CircuitBreaker
	flight   singleflight.Group
	writes   sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache sets the result cache. Defaults to an in-memory LRU.
func WithCache(c cache.Store) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithSink enables the storage sink. Disabled by default.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// WithMetrics records every validated search in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithConfig sets the orchestrator configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator over the registered providers.
// Returns ErrNoProviders if the registry is nil or empty.
func NewOrchestrator(registry *provider.Registry, opts ...Option) (*Orchestrator, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoProviders
	}

	o := &Orchestrator{
		registry: registry,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.config = o.config.withDefaults()
	if o.cache == nil {
		o.cache = cache.NewLRU(cache.DefaultCapacity, cache.WithLogger(o.logger))
	}

	o.breakers = make(map[place.Source]*errors.CircuitBreaker)
	if o.config.CircuitMaxFailures > 0 {
		for _, src := range registry.Sources() {
			o.breakers[src] = errors.NewCircuitBreaker(string(src),
				errors.WithMaxFailures(o.config.CircuitMaxFailures),
				errors.WithResetTimeout(o.config.CircuitResetTimeout),
				errors.WithFailureFilter(countsAgainstProvider),
			)
		}
	}

	return o, nil
}

// countsAgainstProvider reports whether err says something about provider
// health. Bad requests and local rate limiting do not.
func countsAgainstProvider(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	switch errors.AsProviderFailure("", err).Kind {
	case errors.FailureTimeout, errors.FailureUnavailable:
		return true
	default:
		return false
	}
}

// Providers returns the registered sources.
func (o *Orchestrator) Providers() []place.Source {
	return o.registry.Sources()
}

// CircuitStates reports each provider's circuit breaker state.
func (o *Orchestrator) CircuitStates() map[place.Source]string {
	states := make(map[place.Source]string, len(o.breakers))
	for src, cb := range o.breakers {
		states[src] = cb.State().String()
	}
	return states
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Search runs req and returns merged places.
//
// Errors:
//   - errors.ErrInvalidQuery for blank queries; no provider is called
//   - a validation error for bad limits, coordinates or providers
//   - *AllProvidersFailedError when every selected provider failed; nothing is cached
//
// Cache failures never fail a search; the cache is bypassed instead.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(o.config.MaxLimit); err != nil {
		return nil, err
	}

	sources, err := o.resolveProviders(req.Providers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := o.search(ctx, req, sources)
	if o.metrics != nil {
		o.metrics.Record(searchEvent(req.Query, sources, res, err, time.Since(start)))
	}
	return res, err
}

func (o *Orchestrator) search(ctx context.Context, req Request, sources []place.Source) (*Result, error) {
	req = o.applyDefaults(req)
	key := cache.NewKey(req.Query, sources, req.Near)

	o.logger.Debug("search_started",
		slog.String("query", req.Query),
		slog.Any("providers", sources),
		slog.Int("limit", req.Limit),
		slog.Bool("refresh", req.Refresh))

	if !req.Refresh {
		if res, ok := o.fromCache(key, req.Limit); ok {
			return res, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search cancelled: %w", err)
	}

	// Identical concurrent misses share one fan-out. The fan-out outlives
	// any single caller; provider timeouts bound it.
	flightKey := key.String()
	if req.Refresh {
		flightKey += "|refresh"
	}
	fanCtx := context.WithoutCancel(ctx)
	ch := o.flight.DoChan(flightKey, func() (any, error) {
		return o.fanOut(fanCtx, key, req, sources)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := r.Val.(*Result)
		if r.Shared {
			res = res.clone()
		}
		res.Places = truncate(res.Places, req.Limit)
		return res, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
	}
}

// searchEvent summarizes a finished search for metrics.
func searchEvent(query string, sources []place.Source, res *Result, err error, latency time.Duration) telemetry.Event {
	e := telemetry.Event{Query: query, Providers: sources, Latency: latency}

	var failures map[place.Source]*errors.PlaceError
	var all *AllProvidersFailedError
	switch {
	case err == nil:
		e.Results = len(res.Places)
		e.CacheHit = res.CacheHit
		failures = res.PartialFailures
	case stderrors.As(err, &all):
		e.Failed = true
		failures = all.Failures
	default:
		e.Failed = true
	}

	if len(failures) > 0 {
		e.Failures = make(map[place.Source]errors.FailureKind, len(failures))
		for src, f := range failures {
			e.Failures[src] = f.Kind
		}
	}
	return e
}

// resolveProviders maps the selector onto registered sources.
// An empty selector means every registered provider.
func (o *Orchestrator) resolveProviders(selected []place.Source) ([]place.Source, error) {
	if len(selected) == 0 {
		return o.registry.Sources(), nil
	}

	seen := make(map[place.Source]bool, len(selected))
	sources := make([]place.Source, 0, len(selected))
	for _, src := range selected {
		if seen[src] {
			continue
		}
		seen[src] = true
		if _, ok := o.registry.Get(src); !ok {
			return nil, errors.New(errors.ErrCodeUnknownProvider,
				fmt.Sprintf("provider %q is not configured", src), nil).
				WithDetail("provider", string(src))
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (o *Orchestrator) applyDefaults(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = o.config.DefaultLimit
	}
	if req.TimeoutPerProvider <= 0 {
		req.TimeoutPerProvider = o.config.ProviderTimeout
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = o.config.CacheTTL
	}
	return req
}

func (o *Orchestrator) fromCache(key cache.Key, limit int) (*Result, bool) {
	entry, ok, err := o.cache.Get(key)
	if err != nil {
		o.logCacheUnavailable("get", key, err)
		return nil, false
	}
	if !ok {
		o.logger.Debug("cache_miss", slog.String("key", key.String()))
		return nil, false
	}

	o.logger.Debug("cache_hit", slog.String("key", key.String()), slog.Int("places", len(entry.Places)))
	return &Result{Places: truncate(entry.Places, limit), CacheHit: true}, true
}

// callResult is the outcome of one provider call. Exactly one of places
// and failure is meaningful.
type callResult struct {
	source  place.Source
	places  []place.Place
	failure *errors.PlaceError
}

func (o *Orchestrator) fanOut(ctx context.Context, key cache.Key, req Request, sources []place.Source) (*Result, error) {
	start := time.Now()
	// Providers are asked for the largest allowed result since the merge is
	// cached for callers with any limit.
	preq := provider.Request{Query: req.Query, Limit: o.config.MaxLimit, Near: req.Near}

	calls := make([]callResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		p, _ := o.registry.Get(src)
		g.Go(func() error {
			calls[i] = o.call(gctx, p, preq, req.TimeoutPerProvider)
			return nil // failures are collected, never abort siblings
		})
	}
	_ = g.Wait()

	successes := make(map[place.Source][]place.Place, len(calls))
	failures := make(map[place.Source]*errors.PlaceError)
	for _, c := range calls {
		if c.failure != nil {
			failures[c.source] = c.failure
			o.logger.Warn("provider_failed", errors.FormatForLog(c.failure)...)
			continue
		}
		successes[c.source] = c.places
	}

	if len(successes) == 0 {
		all := newAllProvidersFailed(failures)
		o.logger.Error("search_failed",
			slog.String("query", req.Query),
			slog.Int("providers", len(sources)),
			slog.String("error", all.Error()))
		return nil, all
	}

	// The full merge is cached; each caller truncates to its own limit.
	merged := Merge(successes, o.config.Priority, o.config.DedupToleranceMeters, 0)

	if err := o.cache.Put(key, merged, req.CacheTTL); err != nil {
		o.logCacheUnavailable("put", key, err)
	}
	o.persist(merged)

	o.logger.Info("search_completed",
		slog.String("query", req.Query),
		slog.Int("results", len(merged)),
		slog.Int("succeeded", len(successes)),
		slog.Int("failed", len(failures)),
		slog.Duration("duration", time.Since(start)))

	res := &Result{Places: merged}
	if len(failures) > 0 {
		res.PartialFailures = failures
	}
	return res, nil
}

// call runs one provider under its own deadline. The provider runs in its
// own goroutine so a call that ignores its context is abandoned, not awaited.
func (o *Orchestrator) call(ctx context.Context, p provider.Provider, req provider.Request, timeout time.Duration) callResult {
	src := p.Name()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		places, err := o.execute(src, func() ([]place.Place, error) {
			return p.Search(ctx, req)
		})
		done <- callResult{source: src, places: places, failure: errors.AsProviderFailure(string(src), err)}
	}()

	select {
	case r := <-done:
		if r.failure == nil {
			r.places = stamp(src, r.places)
		}
		return r
	case <-ctx.Done():
		// Late results are discarded.
		return callResult{source: src, failure: errors.AsProviderFailure(string(src), ctx.Err())}
	}
}

// execute runs fn through the provider's circuit breaker, if any.
func (o *Orchestrator) execute(src place.Source, fn func() ([]place.Place, error)) ([]place.Place, error) {
	cb, ok := o.breakers[src]
	if !ok {
		return fn()
	}
	return errors.CircuitExecute(cb, fn)
}

// stamp fills in provenance the provider left out.
func stamp(src place.Source, places []place.Place) []place.Place {
	if places == nil {
		return []place.Place{}
	}
	for i := range places {
		if places[i].Source == "" {
			places[i].Source = src
		}
		if places[i].ID == "" {
			continue
		}
		if s, _, err := place.SplitID(places[i].ID); err != nil || s != places[i].Source {
			places[i].ID = place.QualifiedID(places[i].Source, places[i].ID)
		}
	}
	return places
}

// persist hands a copy of places to the sink in the background.
func (o *Orchestrator) persist(places []place.Place) {
	if o.sink == nil || len(places) == 0 {
		return
	}

	batch := place.CloneAll(places)
	o.writes.Add(1)
	go func() {
		defer o.writes.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("storage_panic", slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), o.config.StorageTimeout)
		defer cancel()

		n, err := o.sink.Save(ctx, batch)
		if err != nil {
			o.logger.Warn("storage_failed", errors.FormatForLog(errors.New(errors.ErrCodeStorageFailed, "saving places failed", err))...)
			return
		}
		o.logger.Debug("storage_saved", slog.Int("saved", n), slog.Int("offered", len(batch)))
	}()
}

func (o *Orchestrator) logCacheUnavailable(op string, key cache.Key, err error) {
	cerr := errors.CacheUnavailable(fmt.Sprintf("cache %s failed", op), err).WithDetail("key", key.String())
	o.logger.Warn("cache_unavailable", errors.FormatForLog(cerr)...)
}

// Close waits for in-flight storage writes.
func (o *Orchestrator) Close() error {
	o.writes.Wait()
	return nil
}

func truncate(places []place.Place, limit int) []place.Place {
	if limit > 0 && len(places) > limit {
		return places[:limit]
	}
	return places
}

func (r *Result) clone() *Result {
	c := &Result{Places: place.CloneAll(r.Places), CacheHit: r.CacheHit}
	if r.PartialFailures != nil {
		c.PartialFailures = make(map[place.Source]*errors.PlaceError, len(r.PartialFailures))
		for k, v := range r.PartialFailures {
			c.PartialFailures[k] = v
		}
	}
	return c
}
