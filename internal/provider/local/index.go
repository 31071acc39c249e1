package local

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

// Field names in the bleve document.
const (
	fieldName      = "name"
	fieldAddress   = "address"
	fieldLatitude  = "latitude"
	fieldLongitude = "longitude"
	fieldHasCoords = "has_coordinates"
	fieldRaw       = "raw"
)

// defaultLimit applies when a request carries no limit.
const defaultLimit = 10

// ErrClosed is returned by operations on a closed index.
var ErrClosed = stderrors.New("index is closed")

// document is the bleve representation of a place.
type document struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	HasCoordinates bool    `json:"has_coordinates"`
	Raw            string  `json:"raw"`
}

// Index is the local full-text place index. It answers searches for
// place.SourceWhoosh by matching the query against place names.
//
// Thread-safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
	logger *slog.Logger
}

var (
	_ provider.Provider       = (*Index)(nil)
	_ provider.DetailProvider = (*Index)(nil)
)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		i.logger = logger
	}
}

// Open opens the index at path, creating it if it does not exist.
// An empty path creates an in-memory index.
func Open(path string, opts ...Option) (*Index, error) {
	i := &Index{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}

	indexMapping := newIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, errors.New(errors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to create directory for %s", path), mkErr)
		}
		idx, err = bleve.Open(path)
		if stderrors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			i.logger.Info("place_index_created", slog.String("path", path))
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeIndexFailed,
			fmt.Sprintf("failed to open place index %q", path), err).
			WithSuggestion("Rebuild the index with 'placesearch index'")
	}

	i.index = idx
	return i, nil
}

// newIndexMapping indexes the name with the standard analyzer and stores
// everything else for reconstruction.
func newIndexMapping() *mapping.IndexMappingImpl {
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true

	storedText := bleve.NewTextFieldMapping()
	storedText.Analyzer = keyword.Name
	storedText.Index = false
	storedText.Store = true

	storedNumber := bleve.NewNumericFieldMapping()
	storedNumber.Index = false
	storedNumber.Store = true

	storedBool := bleve.NewBooleanFieldMapping()
	storedBool.Index = false
	storedBool.Store = true

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(fieldName, nameField)
	doc.AddFieldMappingsAt(fieldAddress, storedText)
	doc.AddFieldMappingsAt(fieldRaw, storedText)
	doc.AddFieldMappingsAt(fieldLatitude, storedNumber)
	doc.AddFieldMappingsAt(fieldLongitude, storedNumber)
	doc.AddFieldMappingsAt(fieldHasCoords, storedBool)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Name implements provider.Provider.
func (i *Index) Name() place.Source {
	return place.SourceWhoosh
}

// Path returns the on-disk location, empty for in-memory indexes.
func (i *Index) Path() string {
	return i.path
}

// Index adds or replaces places. Each place is stored under its native ID.
// Returns the number of places indexed.
func (i *Index) Index(ctx context.Context, places []place.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, ErrClosed
	}

	batch := i.index.NewBatch()
	for _, p := range places {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		id := p.NativeID()
		if id == "" || strings.TrimSpace(p.Name) == "" {
			i.logger.Debug("place_index_skipped", slog.String("id", p.ID), slog.String("reason", "missing id or name"))
			continue
		}
		doc, err := toDocument(p)
		if err != nil {
			return 0, errors.New(errors.ErrCodeIndexFailed, fmt.Sprintf("failed to encode place %s", p.ID), err)
		}
		if err := batch.Index(id, doc); err != nil {
			return 0, errors.New(errors.ErrCodeIndexFailed, fmt.Sprintf("failed to index place %s", p.ID), err)
		}
	}

	n := batch.Size()
	if err := i.index.Batch(batch); err != nil {
		return 0, errors.New(errors.ErrCodeIndexFailed, "failed to execute batch", err)
	}
	return n, nil
}

// Search returns places whose name matches the query, best match first.
// Proximity bias is ignored.
func (i *Index) Search(ctx context.Context, req provider.Request) ([]place.Place, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, errors.Unavailable(string(place.SourceWhoosh), "index is closed", ErrClosed)
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []place.Place{}, nil
	}

	match := bleve.NewMatchQuery(query)
	match.SetField(fieldName)

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	searchRequest := bleve.NewSearchRequest(match)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	result, err := i.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Unavailable(string(place.SourceWhoosh), "index search failed", err)
	}

	places := make([]place.Place, 0, len(result.Hits))
	for _, hit := range result.Hits {
		places = append(places, fromFields(hit.ID, hit.Fields))
	}
	return places, nil
}

// Lookup returns the indexed place with the given native ID.
func (i *Index) Lookup(ctx context.Context, nativeID string) (place.Place, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return place.Place{}, errors.Unavailable(string(place.SourceWhoosh), "index is closed", ErrClosed)
	}

	q := bleve.NewDocIDQuery([]string{nativeID})
	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = 1
	searchRequest.Fields = []string{"*"}

	result, err := i.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return place.Place{}, errors.Unavailable(string(place.SourceWhoosh), "index lookup failed", err)
	}
	if len(result.Hits) == 0 {
		return place.Place{}, errors.New(errors.ErrCodePlaceNotFound,
			fmt.Sprintf("place %s not found in local index", nativeID), nil).
			WithDetail("id", place.QualifiedID(place.SourceWhoosh, nativeID))
	}
	hit := result.Hits[0]
	return fromFields(hit.ID, hit.Fields), nil
}

// Delete removes places by native ID.
func (i *Index) Delete(ctx context.Context, nativeIDs []string) error {
	if len(nativeIDs) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return ErrClosed
	}

	batch := i.index.NewBatch()
	for _, id := range nativeIDs {
		batch.Delete(id)
	}
	if err := i.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to delete places", err)
	}
	return nil
}

// Count returns the number of indexed places.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return 0, ErrClosed
	}
	return i.index.DocCount()
}

// Close closes the index. Safe to call more than once.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	return i.index.Close()
}

func toDocument(p place.Place) (document, error) {
	doc := document{Name: p.Name, Address: p.Address}
	if p.Coordinates != nil {
		doc.Latitude = p.Coordinates.Latitude
		doc.Longitude = p.Coordinates.Longitude
		doc.HasCoordinates = true
	}
	if len(p.Raw) > 0 {
		raw, err := json.Marshal(p.Raw)
		if err != nil {
			return document{}, err
		}
		doc.Raw = string(raw)
	}
	return doc, nil
}

func fromFields(id string, fields map[string]interface{}) place.Place {
	p := place.Place{
		ID:     place.QualifiedID(place.SourceWhoosh, id),
		Source: place.SourceWhoosh,
	}
	p.Name, _ = fields[fieldName].(string)
	p.Address, _ = fields[fieldAddress].(string)

	if has, _ := fields[fieldHasCoords].(bool); has {
		lat, _ := fields[fieldLatitude].(float64)
		lng, _ := fields[fieldLongitude].(float64)
		p.Coordinates = &place.Coordinates{Latitude: lat, Longitude: lng}
	}

	if raw, _ := fields[fieldRaw].(string); raw != "" {
		var m map[string]any
		if json.Unmarshal([]byte(raw), &m) == nil {
			p.Raw = m
		}
	}
	return p
}
