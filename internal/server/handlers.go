package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Aman-CERP/placesearch/internal/cache"
	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/internal/search"
	"github.com/Aman-CERP/placesearch/internal/telemetry"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			s.logger.Warn("search_failed", errors.FormatForLog(err)...)
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, NewFeatureCollection(res.Places, res.PartialFailures, res.CacheHit))
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.searcher.Lookup(r.Context(), id)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			s.logger.Warn("lookup_failed", append(errors.FormatForLog(err), slog.String("id", id))...)
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, NewFeature(p))
}

// Health is the /healthz body.
type Health struct {
	Status    string            `json:"status"`
	Providers []string          `json:"providers"`
	Circuits  map[string]string `json:"circuits,omitempty"`
	Cache     *cache.Stats      `json:"cache,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := Health{Status: "ok"}
	for _, src := range s.searcher.Providers() {
		h.Providers = append(h.Providers, string(src))
	}
	if states := s.searcher.CircuitStates(); len(states) > 0 {
		h.Circuits = make(map[string]string, len(states))
		for src, state := range states {
			h.Circuits[string(src)] = state
		}
	}
	if s.cacheStats != nil {
		stats := s.cacheStats()
		h.Cache = &stats
	}
	respondJSON(w, http.StatusOK, h)
}

// Stats is the /stats body.
type Stats struct {
	telemetry.Snapshot
	CacheHitRate float64      `json:"cache_hit_rate"`
	Cache        *cache.Stats `json:"cache,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.metrics()
	st := Stats{Snapshot: snap, CacheHitRate: snap.CacheHitRate()}
	if s.cacheStats != nil {
		stats := s.cacheStats()
		st.Cache = &stats
	}
	respondJSON(w, http.StatusOK, st)
}

// parseSearchRequest reads the /search query parameters.
//
// provider is a comma-separated list of sources or "all"; legacy names
// such as "local" and "google" are accepted. latitude and longitude must
// be given together.
func parseSearchRequest(q url.Values) (search.Request, error) {
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		return search.Request{}, errors.New(errors.ErrCodeInvalidQuery, "Query parameter is required", nil)
	}
	req := search.Request{Query: query}

	if v := q.Get("provider"); v != "" && !strings.EqualFold(v, "all") {
		for _, name := range strings.Split(v, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			src, err := place.ParseSource(name)
			if err != nil {
				return search.Request{}, errors.New(errors.ErrCodeUnknownProvider, err.Error(), err).
					WithDetail("provider", name)
			}
			req.Providers = append(req.Providers, src)
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return search.Request{}, invalidParam("limit", v)
		}
		req.Limit = limit
	}

	lat, lng := q.Get("latitude"), q.Get("longitude")
	switch {
	case lat != "" && lng != "":
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return search.Request{}, invalidParam("latitude", lat)
		}
		lo, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return search.Request{}, invalidParam("longitude", lng)
		}
		req.Near = &place.Coordinates{Latitude: la, Longitude: lo}
	case lat != "" || lng != "":
		return search.Request{}, errors.ValidationError("latitude and longitude must be given together", nil)
	}

	if v := q.Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			return search.Request{}, invalidParam("refresh", v)
		}
		req.Refresh = refresh
	}
	return req, nil
}

func invalidParam(name, value string) error {
	return errors.ValidationError(fmt.Sprintf("invalid %s %q", name, value), nil).WithDetail(name, value)
}
