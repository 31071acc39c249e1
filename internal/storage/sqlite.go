package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
)

// SQLiteStorage stores places in a SQLite database.
// Safe for concurrent use. Multiple processes may share the file (WAL).
type SQLiteStorage struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
	now    func() time.Time
}

var _ PlaceStorage = (*SQLiteStorage)(nil)

// OpenSQLite opens (or creates) the database at path.
// An empty path opens an in-memory database.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.New(errors.ErrCodeStorageFailed,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageFailed, "failed to open database", err)
	}

	// Single writer; also keeps one shared in-memory database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.New(errors.ErrCodeStorageFailed, "failed to set pragma", err)
		}
	}

	s := &SQLiteStorage{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.New(errors.ErrCodeStorageFailed, "failed to initialize schema", err)
	}
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS places (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		address     TEXT NOT NULL DEFAULT '',
		latitude    REAL,
		longitude   REAL,
		raw         TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		UNIQUE (source, provider_id)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database path, empty for in-memory databases.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Save upserts places. Existing rows keep their ID and creation time.
func (s *SQLiteStorage) Save(ctx context.Context, places []place.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.New(errors.ErrCodeStorageFailed, "storage is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStorageFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO places (id, source, provider_id, name, address, latitude, longitude, raw, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, provider_id) DO UPDATE SET
			name       = excluded.name,
			address    = excluded.address,
			latitude   = excluded.latitude,
			longitude  = excluded.longitude,
			raw        = excluded.raw,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, errors.New(errors.ErrCodeStorageFailed, "failed to prepare upsert", err)
	}
	defer stmt.Close()

	now := s.now().UTC().Format(time.RFC3339)
	written := 0
	for _, p := range places {
		if !storable(p) {
			continue
		}

		raw := "{}"
		if len(p.Raw) > 0 {
			data, err := json.Marshal(p.Raw)
			if err != nil {
				return 0, errors.New(errors.ErrCodeStorageFailed,
					fmt.Sprintf("failed to encode place %s", p.ID), err)
			}
			raw = string(data)
		}

		var lat, lng sql.NullFloat64
		if p.Coordinates != nil {
			lat = sql.NullFloat64{Float64: p.Coordinates.Latitude, Valid: true}
			lng = sql.NullFloat64{Float64: p.Coordinates.Longitude, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			strings.ToUpper(uuid.NewString()),
			string(p.Source), p.NativeID(), p.Name, p.Address,
			lat, lng, raw, now, now,
		); err != nil {
			return 0, errors.New(errors.ErrCodeStorageFailed,
				fmt.Sprintf("failed to save place %s", p.ID), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.New(errors.ErrCodeStorageFailed, "failed to commit", err)
	}
	return written, nil
}

// All returns every stored place, oldest first.
func (s *SQLiteStorage) All(ctx context.Context) ([]place.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.ErrCodeStorageFailed, "storage is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, provider_id, name, address, latitude, longitude, raw
		FROM places
		ORDER BY created_at, rowid`)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageFailed, "failed to query places", err)
	}
	defer rows.Close()

	places := []place.Place{}
	for rows.Next() {
		var (
			rowID, source, nativeID, name, address, raw string
			lat, lng                                    sql.NullFloat64
		)
		if err := rows.Scan(&rowID, &source, &nativeID, &name, &address, &lat, &lng, &raw); err != nil {
			return nil, errors.New(errors.ErrCodeStorageFailed, "failed to scan place", err)
		}

		p := place.Place{
			ID:      place.QualifiedID(place.Source(source), nativeID),
			Name:    name,
			Address: address,
			Source:  place.Source(source),
		}
		if lat.Valid && lng.Valid {
			p.Coordinates = &place.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		var m map[string]any
		if raw != "" && json.Unmarshal([]byte(raw), &m) == nil && len(m) > 0 {
			p.Raw = m
		}
		if p.Raw == nil {
			p.Raw = map[string]any{}
		}
		p.Raw["storage_id"] = rowID
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeStorageFailed, "failed to read places", err)
	}
	return places, nil
}

// Count returns the number of stored places.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, errors.New(errors.ErrCodeStorageFailed, "storage is closed", nil)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n); err != nil {
		return 0, errors.New(errors.ErrCodeStorageFailed, "failed to count places", err)
	}
	return n, nil
}

// Close checkpoints the WAL and closes the database. Safe to call more than once.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
