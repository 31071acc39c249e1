package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/placesearch/internal/output"
	"github.com/Aman-CERP/placesearch/internal/search"
	"github.com/Aman-CERP/placesearch/internal/server"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	providers []string
	limit     int
	near      string
	refresh   bool
	jsonOut   bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search places across all configured providers",
		Long: `Search places across all configured providers.

Providers are queried concurrently. Results are merged in priority order
and near-duplicates are collapsed. Providers that fail are reported as
warnings; the command fails only when every provider fails.

Examples:
  placesearch search "coffee"
  placesearch search "bagel" --provider mapbox,whoosh --limit 5
  placesearch search "museum" --near 45.5017,-73.5673
  placesearch search "pharmacy" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.providers, "provider", "p", nil, "Providers to query: whoosh, mapbox, google_places (default all)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of places (default from config)")
	cmd.Flags().StringVar(&opts.near, "near", "", "Bias results towards a location, as lat,lng")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Skip cached results")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output a GeoJSON FeatureCollection")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	req, err := opts.request(query)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orchestrator.Search(ctx, req)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(server.NewFeatureCollection(res.Places, res.PartialFailures, res.CacheHit))
	}

	out := output.New(cmd.OutOrStdout())
	out.Places(res.Places)
	if len(res.PartialFailures) > 0 {
		out.Newline()
		out.Failures(res.PartialFailures)
	}
	return nil
}

func (o searchOptions) request(query string) (search.Request, error) {
	req := search.Request{
		Query:   query,
		Limit:   o.limit,
		Refresh: o.refresh,
	}
	for _, name := range o.providers {
		src, err := place.ParseSource(name)
		if err != nil {
			return search.Request{}, err
		}
		req.Providers = append(req.Providers, src)
	}
	if o.near != "" {
		near, err := parseLatLng(o.near)
		if err != nil {
			return search.Request{}, err
		}
		req.Near = near
	}
	return req, nil
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (*place.Coordinates, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("invalid --near %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", lngStr, err)
	}
	c := &place.Coordinates{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
