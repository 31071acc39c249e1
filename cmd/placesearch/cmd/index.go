package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/placesearch/internal/config"
	"github.com/Aman-CERP/placesearch/internal/output"
	"github.com/Aman-CERP/placesearch/internal/provider/local"
	"github.com/Aman-CERP/placesearch/internal/storage"
	"github.com/Aman-CERP/placesearch/internal/ui"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	seed      string
	indexPath string
	rebuild   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the local place index",
		Long: `Build the local (whoosh) place index.

By default every place saved in the storage database is indexed, so places
found through Mapbox or Google Places become searchable offline. Use --seed
to index a YAML or JSON list of places instead:

  - id: fairmount
    name: Fairmount Bagel
    address: 74 Av. Fairmount O, Montreal
    latitude: 45.5229
    longitude: -73.5946
    category: bakery

Fields other than id, name, address, latitude and longitude are kept as
place details. Only one index build may run at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.indexPath != "" {
				cfg.Providers.Whoosh.IndexPath = opts.indexPath
			}
			return runIndex(ctx, cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.seed, "seed", "", "Index places from a YAML or JSON file instead of the storage database")
	cmd.Flags().StringVar(&opts.indexPath, "index-path", "", "Index directory (default from config)")
	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "Delete the existing index before indexing")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())
	indexPath := cfg.Providers.Whoosh.IndexPath
	if indexPath == "" {
		return fmt.Errorf("no index path configured")
	}

	lock := local.NewWriteLock(indexPath)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	start := time.Now()
	renderer := ui.NewRenderer(ui.Config{Output: cmd.ErrOrStderr(), NoColor: output.DetectNoColor()})
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Message: "reading places"})
	places, origin, err := loadPlacesToIndex(ctx, cfg, opts.seed)
	if err != nil {
		return err
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageLoading,
		Message: fmt.Sprintf("%d places from %s", len(places), origin),
	})

	if opts.rebuild {
		if err := removeIndex(indexPath); err != nil {
			return err
		}
	}

	idx, err := local.Open(indexPath, local.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := indexInBatches(ctx, idx, places, func(done int) {
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: done, Total: len(places)})
	})
	if err != nil {
		return err
	}
	total, err := idx.Count()
	if err != nil {
		return err
	}

	slog.Info("index_complete",
		slog.String("origin", origin),
		slog.Int("indexed", n),
		slog.Uint64("total", total))

	renderer.Complete(ui.CompletionStats{
		Indexed:   n,
		Total:     len(places),
		Duration:  time.Since(start),
		IndexPath: indexPath,
	})
	_ = renderer.Stop()

	out.Statusf("📁", "Index: %s (%d places)", indexPath, total)
	return nil
}

// indexBatchSize is how many places go into one index batch.
const indexBatchSize = 100

// indexInBatches indexes places in fixed-size batches, reporting the number
// of places processed after each one.
func indexInBatches(ctx context.Context, idx *local.Index, places []place.Place, progress func(done int)) (int, error) {
	indexed := 0
	for start := 0; start < len(places); start += indexBatchSize {
		end := min(start+indexBatchSize, len(places))
		n, err := idx.Index(ctx, places[start:end])
		if err != nil {
			return indexed, err
		}
		indexed += n
		progress(end)
	}
	return indexed, nil
}

// loadPlacesToIndex reads places from the seed file or the storage
// database and rewrites their IDs for the local index.
func loadPlacesToIndex(ctx context.Context, cfg *config.Config, seed string) ([]place.Place, string, error) {
	if seed != "" {
		places, err := readSeedFile(seed)
		if err != nil {
			return nil, "", err
		}
		return places, seed, nil
	}

	if !fileExistsAt(cfg.Storage.Path) {
		return nil, "", fmt.Errorf("no storage database at %s: enable storage and run some searches, or pass --seed", cfg.Storage.Path)
	}
	store, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, "", err
	}
	defer store.Close()

	stored, err := store.All(ctx)
	if err != nil {
		return nil, "", err
	}
	places := make([]place.Place, 0, len(stored))
	for _, p := range stored {
		places = append(places, localCopy(p))
	}
	return places, cfg.Storage.Path, nil
}

// localCopy re-identifies a stored place for the local index. The storage
// row id keeps IDs from different providers apart; the original source and
// ID are kept as details.
func localCopy(p place.Place) place.Place {
	c := p.Clone()
	if c.Raw == nil {
		c.Raw = map[string]any{}
	}
	c.Raw["origin_source"] = string(p.Source)
	c.Raw["origin_id"] = p.ID

	nativeID, _ := c.Raw["storage_id"].(string)
	if nativeID == "" {
		nativeID = string(p.Source) + "-" + p.NativeID()
	}
	c.ID = place.QualifiedID(place.SourceWhoosh, nativeID)
	c.Source = place.SourceWhoosh
	return c
}

// seedPlace is one entry of a seed file. Unknown fields become details.
type seedPlace struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Address   string         `yaml:"address"`
	Latitude  *float64       `yaml:"latitude"`
	Longitude *float64       `yaml:"longitude"`
	Details   map[string]any `yaml:",inline"`
}

// readSeedFile reads a YAML (or JSON) list of places.
func readSeedFile(path string) ([]place.Place, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedPlace
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	places := make([]place.Place, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("seed entry %d: name is required", i+1)
		}
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = fmt.Sprintf("seed-%d", i+1)
		}
		p := place.Place{
			ID:      place.QualifiedID(place.SourceWhoosh, id),
			Name:    e.Name,
			Address: e.Address,
			Source:  place.SourceWhoosh,
		}
		if len(e.Details) > 0 {
			p.Raw = e.Details
		}
		switch {
		case e.Latitude != nil && e.Longitude != nil:
			c := place.Coordinates{Latitude: *e.Latitude, Longitude: *e.Longitude}
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("seed entry %d (%s): %w", i+1, e.Name, err)
			}
			p.Coordinates = &c
		case e.Latitude != nil || e.Longitude != nil:
			return nil, fmt.Errorf("seed entry %d (%s): latitude and longitude must be given together", i+1, e.Name)
		}
		places = append(places, p)
	}
	return places, nil
}

// removeIndex deletes an existing index directory.
func removeIndex(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("index path %s is not a directory", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	return nil
}

func fileExistsAt(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
