package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"aqualink/internal/models"
)

// Cache persists the last good snapshots so a restarted agent can show
// stale-but-present data immediately instead of a blank screen while
// the first fetches run.
type Cache interface {
	// SaveCatalog replaces the cached dashboard snapshot
	SaveCatalog(ctx context.Context, d *models.Dashboard) error

	// LoadCatalog returns the cached snapshot, or nil if none exists
	LoadCatalog(ctx context.Context) (*models.Dashboard, time.Time, error)

	// SaveSeries replaces the cached series map together with its request key
	SaveSeries(ctx context.Context, key string, windowMinutes int, series models.SeriesMap) error

	// LoadSeries returns the cached series map, its key and window
	LoadSeries(ctx context.Context) (models.SeriesMap, string, int, error)

	// Close closes the underlying database
	Close() error
}

// SQLiteCache implements Cache using SQLite
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the snapshot cache at dbPath
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-ahead logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between performance and safety
		"PRAGMA busy_timeout=10000", // Wait up to 10s for locks
		"PRAGMA temp_store=MEMORY",  // Use memory for temp tables
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// initSchema creates the snapshot tables. Each table holds at most one
// row: snapshots are whole-replacement, never merged.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		fetched_at_ms INTEGER NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS series_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		request_key TEXT NOT NULL,
		window_minutes INTEGER NOT NULL,
		fetched_at_ms INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveCatalog replaces the cached dashboard snapshot
func (c *SQLiteCache) SaveCatalog(ctx context.Context, d *models.Dashboard) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode catalog snapshot: %w", err)
	}

	query := `
	INSERT INTO catalog_snapshot (id, fetched_at_ms, payload)
	VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET fetched_at_ms = excluded.fetched_at_ms, payload = excluded.payload
	`

	if _, err := c.db.ExecContext(ctx, query, time.Now().UnixMilli(), string(payload)); err != nil {
		return fmt.Errorf("failed to store catalog snapshot: %w", err)
	}
	return nil
}

// LoadCatalog returns the cached snapshot, or nil if none exists
func (c *SQLiteCache) LoadCatalog(ctx context.Context) (*models.Dashboard, time.Time, error) {
	var fetchedAtMs int64
	var payload string

	row := c.db.QueryRowContext(ctx, "SELECT fetched_at_ms, payload FROM catalog_snapshot WHERE id = 1")
	if err := row.Scan(&fetchedAtMs, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("failed to load catalog snapshot: %w", err)
	}

	var dash models.Dashboard
	if err := json.Unmarshal([]byte(payload), &dash); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode catalog snapshot: %w", err)
	}
	return &dash, time.UnixMilli(fetchedAtMs), nil
}

// SaveSeries replaces the cached series map together with its request key
func (c *SQLiteCache) SaveSeries(ctx context.Context, key string, windowMinutes int, series models.SeriesMap) error {
	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode series snapshot: %w", err)
	}

	query := `
	INSERT INTO series_snapshot (id, request_key, window_minutes, fetched_at_ms, payload)
	VALUES (1, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		request_key = excluded.request_key,
		window_minutes = excluded.window_minutes,
		fetched_at_ms = excluded.fetched_at_ms,
		payload = excluded.payload
	`

	if _, err := c.db.ExecContext(ctx, query, key, windowMinutes, time.Now().UnixMilli(), string(payload)); err != nil {
		return fmt.Errorf("failed to store series snapshot: %w", err)
	}
	return nil
}

// LoadSeries returns the cached series map, its key and window
func (c *SQLiteCache) LoadSeries(ctx context.Context) (models.SeriesMap, string, int, error) {
	var key string
	var window int
	var payload string

	row := c.db.QueryRowContext(ctx, "SELECT request_key, window_minutes, payload FROM series_snapshot WHERE id = 1")
	if err := row.Scan(&key, &window, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", 0, nil
		}
		return nil, "", 0, fmt.Errorf("failed to load series snapshot: %w", err)
	}

	var series models.SeriesMap
	if err := json.Unmarshal([]byte(payload), &series); err != nil {
		return nil, "", 0, fmt.Errorf("failed to decode series snapshot: %w", err)
	}
	return series, key, window, nil
}

// DBSize returns the database file size in bytes
func (c *SQLiteCache) DBSize() (int64, error) {
	var pageCount, pageSize int64
	if err := c.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := c.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to get page size: %w", err)
	}
	return pageCount * pageSize, nil
}

// Close closes the underlying database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
