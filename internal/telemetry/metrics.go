// Package telemetry collects search metrics in process. Nothing is reported
// externally; the HTTP server exposes a snapshot.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Event describes one completed search.
type Event struct {
	Query     string
	Providers []place.Source
	Results   int
	Latency   time.Duration
	CacheHit  bool
	// Failures holds the failure kind of each provider that failed.
	Failures map[place.Source]errors.FailureKind
	// Failed is true when the search returned an error.
	Failed bool
}

// ProviderCounts are per-provider call counts. Cache hits call no provider
// and are not counted.
type ProviderCounts struct {
	Calls    int64            `json:"calls"`
	Failures map[string]int64 `json:"failures,omitempty"`
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Searches          int64                     `json:"searches"`
	CacheHits         int64                     `json:"cache_hits"`
	FailedSearches    int64                     `json:"failed_searches"`
	ZeroResults       int64                     `json:"zero_results"`
	Providers         map[string]ProviderCounts `json:"providers"`
	Latency           map[LatencyBucket]int64   `json:"latency"`
	TopTerms          []TermCount               `json:"top_terms"`
	RecentZeroResults []string                  `json:"recent_zero_results"`
	Since             time.Time                 `json:"since"`
}

// CacheHitRate returns the share of searches served from the cache.
func (s Snapshot) CacheHitRate() float64 {
	if s.Searches == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Searches)
}

// Config sizes the bounded parts of the metrics.
type Config struct {
	TopTermsCapacity    int // distinct terms tracked, least recently searched dropped first
	ZeroResultsCapacity int // recent zero-result queries kept
	TopTermsReported    int // terms included in a snapshot
}

// DefaultConfig returns the default sizes.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    500,
		ZeroResultsCapacity: 50,
		TopTermsReported:    20,
	}
}

// Metrics aggregates search events.
//
// Thread-safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	config      Config
	searches    int64
	cacheHits   int64
	failed      int64
	zeroResults int64
	providers   map[place.Source]*ProviderCounts
	latency     map[LatencyBucket]int64
	terms       *lru.Cache[string, int64]
	zeroQueries *CircularBuffer[string]
	since       time.Time
	now         func() time.Time
}

// New creates metrics with cfg. Zero fields take their defaults.
func New(cfg Config) *Metrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.TopTermsReported <= 0 {
		cfg.TopTermsReported = def.TopTermsReported
	}

	m := &Metrics{config: cfg, now: time.Now}
	m.reset()
	return m
}

func (m *Metrics) reset() {
	// lru.New only fails for non-positive sizes.
	terms, _ := lru.New[string, int64](m.config.TopTermsCapacity)

	m.searches, m.cacheHits, m.failed, m.zeroResults = 0, 0, 0, 0
	m.providers = make(map[place.Source]*ProviderCounts)
	m.latency = make(map[LatencyBucket]int64)
	m.terms = terms
	m.zeroQueries = NewCircularBuffer[string](m.config.ZeroResultsCapacity)
	m.since = m.now()
}

// Record adds one search.
func (m *Metrics) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches++
	m.latency[LatencyToBucket(e.Latency)]++
	for _, term := range ExtractTerms(e.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}

	if e.Failed {
		m.failed++
	} else if e.Results == 0 {
		m.zeroResults++
		m.zeroQueries.Add(strings.TrimSpace(e.Query))
	}

	if e.CacheHit {
		m.cacheHits++
		return
	}
	for _, src := range e.Providers {
		pc := m.providers[src]
		if pc == nil {
			pc = &ProviderCounts{}
			m.providers[src] = pc
		}
		pc.Calls++
		if kind, ok := e.Failures[src]; ok {
			if pc.Failures == nil {
				pc.Failures = make(map[string]int64)
			}
			pc.Failures[string(kind)]++
		}
	}
}

// Snapshot returns a copy of the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Searches:          m.searches,
		CacheHits:         m.cacheHits,
		FailedSearches:    m.failed,
		ZeroResults:       m.zeroResults,
		Providers:         make(map[string]ProviderCounts, len(m.providers)),
		Latency:           make(map[LatencyBucket]int64, len(m.latency)),
		TopTerms:          []TermCount{},
		RecentZeroResults: m.zeroQueries.Items(),
		Since:             m.since,
	}
	for src, pc := range m.providers {
		c := ProviderCounts{Calls: pc.Calls}
		if len(pc.Failures) > 0 {
			c.Failures = make(map[string]int64, len(pc.Failures))
			for k, v := range pc.Failures {
				c.Failures[k] = v
			}
		}
		s.Providers[string(src)] = c
	}
	for b, n := range m.latency {
		s.Latency[b] = n
	}

	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	if len(s.TopTerms) > m.config.TopTermsReported {
		s.TopTerms = s.TopTerms[:m.config.TopTermsReported]
	}
	return s
}

// Reset clears all metrics and restarts the Since clock.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// ExtractTerms lowercases query and returns its words of three or more
// characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}
