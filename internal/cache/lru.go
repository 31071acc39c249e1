package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Cache configuration defaults.
const (
	// DefaultCapacity is the number of distinct searches kept in memory.
	DefaultCapacity = 1000

	// DefaultTTL is how long a cached search stays fresh.
	DefaultTTL = time.Hour
)

// Store is the cache backend used by the orchestrator.
// Errors mean the backend itself is unavailable, never a miss.
type Store interface {
	Get(key Key) (Entry, bool, error)
	Put(key Key, places []place.Place, ttl time.Duration) error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len         int    `json:"len"`
	Capacity    int    `json:"capacity"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// LRU is an in-memory Store with per-entry TTL and least recently used
// eviction once capacity is reached. Safe for concurrent use.
type LRU struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
	onEvict    func(Entry)

	mu       sync.Mutex
	entries  *lru.Cache[Key, Entry]
	expiring bool
	stats    Stats
}

var _ Store = (*LRU)(nil)

// Option configures an LRU.
type Option func(*LRU)

// WithDefaultTTL sets the TTL used when Put is called with ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(l *LRU) {
		if ttl > 0 {
			l.defaultTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *LRU) {
		l.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LRU) {
		l.logger = logger
	}
}

// WithEvictHook registers fn to observe every entry that leaves the cache,
// whether through capacity pressure or expiry.
func WithEvictHook(fn func(Entry)) Option {
	return func(l *LRU) {
		l.onEvict = fn
	}
}

// NewLRU creates a cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewLRU(capacity int, opts ...Option) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &LRU{
		capacity:   capacity,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	// Only fails for non-positive sizes.
	l.entries, _ = lru.NewWithEvict[Key, Entry](capacity, l.evicted)
	return l
}

// evicted runs synchronously inside Add/Remove, so l.mu is held by the caller.
func (l *LRU) evicted(key Key, e Entry) {
	if l.expiring {
		l.stats.Expirations++
	} else {
		l.stats.Evictions++
		l.logger.Debug("cache_evicted", slog.String("key", key.String()))
	}
	if l.onEvict != nil {
		e.Status = StatusEvicted
		l.onEvict(e.clone())
	}
}

// Get returns a copy of the fresh entry for key.
// Expired entries are removed and reported as absent.
func (l *LRU) Get(key Key) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Get(key)
	if !ok {
		l.stats.Misses++
		return Entry{}, false, nil
	}
	if e.expired(l.now()) {
		l.removeExpiredLocked(key)
		l.stats.Misses++
		return Entry{}, false, nil
	}

	l.stats.Hits++
	return e.clone(), true, nil
}

// Put stores a copy of places under key, replacing any existing entry.
// A non-positive ttl uses the default TTL.
func (l *LRU) Put(key Key, places []place.Place, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	if places == nil {
		places = []place.Place{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.entries.Add(key, Entry{
		Key:       key,
		Places:    place.CloneAll(places),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    StatusFresh,
	})
	return nil
}

// Inspect returns the entry for key without touching its recency.
// Expired entries are returned with StatusStale and left in place.
func (l *LRU) Inspect(key Key) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries.Peek(key)
	if !ok {
		return Entry{}, false
	}
	if e.expired(l.now()) {
		e.Status = StatusStale
	}
	return e.clone(), true
}

// EvictExpired removes every expired entry and returns how many were removed.
func (l *LRU) EvictExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for _, key := range l.entries.Keys() {
		e, ok := l.entries.Peek(key)
		if ok && e.expired(now) {
			l.removeExpiredLocked(key)
			removed++
		}
	}
	return removed
}

func (l *LRU) removeExpiredLocked(key Key) {
	l.expiring = true
	l.entries.Remove(key)
	l.expiring = false
}

// Len returns the number of entries, including expired ones not yet removed.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (l *LRU) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.stats
	s.Len = l.entries.Len()
	s.Capacity = l.capacity
	return s
}

// Purge drops every entry. Purged entries count as neither evictions nor
// expirations.
func (l *LRU) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	hook := l.onEvict
	l.onEvict = nil
	l.expiring = true
	before := l.stats
	l.entries.Purge()
	l.stats = before
	l.expiring = false
	l.onEvict = hook
}

// StartSweeper removes expired entries every interval until ctx is done.
// It returns immediately when interval is not positive.
func (l *LRU) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.EvictExpired(); n > 0 {
					l.logger.Debug("cache_swept", slog.Int("removed", n))
				}
			}
		}
	}()
}
