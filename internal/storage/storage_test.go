package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aqualink/internal/models"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func floatPtr(f float64) *float64 {
	return &f
}

func TestLoadCatalog_EmptyCache(t *testing.T) {
	cache := newTestCache(t)

	dash, fetchedAt, err := cache.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if dash != nil {
		t.Errorf("Expected nil dashboard, got %+v", dash)
	}
	if !fetchedAt.IsZero() {
		t.Errorf("Expected zero time, got %v", fetchedAt)
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	dash := &models.Dashboard{
		Meta: models.Meta{Timestamp: "2025-03-10 08:00:00", Status: "ok"},
		Data: map[string]models.Station{
			"eta": {KPIs: []models.KPI{
				{ID: "tanque_nivel", Label: "Nível", Value: floatPtr(3.4), Category: "operacional"},
			}},
		},
	}

	before := time.Now()
	if err := cache.SaveCatalog(ctx, dash); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	loaded, fetchedAt, err := cache.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected a dashboard")
	}
	if loaded.Meta.Timestamp != dash.Meta.Timestamp {
		t.Errorf("Timestamp = %s", loaded.Meta.Timestamp)
	}
	kpis := loaded.StationKPIs("eta")
	if len(kpis) != 1 || kpis[0].ID != "tanque_nivel" {
		t.Errorf("KPIs = %+v", kpis)
	}
	if kpis[0].Value == nil || *kpis[0].Value != 3.4 {
		t.Errorf("Value not preserved: %+v", kpis[0].Value)
	}
	if fetchedAt.Before(before.Add(-time.Second)) || fetchedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("fetchedAt = %v out of range", fetchedAt)
	}
}

func TestSaveCatalog_ReplacesPrevious(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	first := &models.Dashboard{Meta: models.Meta{Timestamp: "old"}}
	second := &models.Dashboard{Meta: models.Meta{Timestamp: "new"}}

	if err := cache.SaveCatalog(ctx, first); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}
	if err := cache.SaveCatalog(ctx, second); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	loaded, _, err := cache.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if loaded.Meta.Timestamp != "new" {
		t.Errorf("Expected latest snapshot, got %s", loaded.Meta.Timestamp)
	}
}

func TestSeriesRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	series := models.SeriesMap{
		"tanque/nivel": {
			{TS: "2025-03-10T08:00:00Z", Value: 1.1},
			{TS: "2025-03-10T08:15:00Z", Value: 1.2},
		},
	}
	key := "tanque/nivel@10080"

	if err := cache.SaveSeries(ctx, key, 10080, series); err != nil {
		t.Fatalf("SaveSeries failed: %v", err)
	}

	loaded, loadedKey, window, err := cache.LoadSeries(ctx)
	if err != nil {
		t.Fatalf("LoadSeries failed: %v", err)
	}
	if loadedKey != key {
		t.Errorf("key = %s, want %s", loadedKey, key)
	}
	if window != 10080 {
		t.Errorf("window = %d, want 10080", window)
	}
	points := loaded["tanque/nivel"]
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0].TS != "2025-03-10T08:00:00Z" || points[0].Value != 1.1 {
		t.Errorf("Point order or values not preserved: %+v", points[0])
	}
}

func TestLoadSeries_EmptyCache(t *testing.T) {
	cache := newTestCache(t)

	series, key, window, err := cache.LoadSeries(context.Background())
	if err != nil {
		t.Fatalf("LoadSeries failed: %v", err)
	}
	if series != nil || key != "" || window != 0 {
		t.Errorf("Expected empty result, got %v, %q, %d", series, key, window)
	}
}

func TestDBSize(t *testing.T) {
	cache := newTestCache(t)

	size, err := cache.DBSize()
	if err != nil {
		t.Fatalf("DBSize failed: %v", err)
	}
	if size <= 0 {
		t.Errorf("Expected positive size, got %d", size)
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.db")
	ctx := context.Background()

	cache, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	dash := &models.Dashboard{Meta: models.Meta{Timestamp: "persisted"}}
	if err := cache.SaveCatalog(ctx, dash); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}
	cache.Close()

	reopened, err := NewSQLiteCache(path)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer reopened.Close()

	loaded, _, err := reopened.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if loaded == nil || loaded.Meta.Timestamp != "persisted" {
		t.Errorf("Snapshot did not survive reopen: %+v", loaded)
	}
}
