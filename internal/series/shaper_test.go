package series

import (
	"fmt"
	"testing"
	"time"

	"aqualink/internal/models"
)

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		n    int
		want DensityTier
	}{
		{0, TierSparse},
		{1, TierSparse},
		{19, TierSparse},
		{20, TierMedium},
		{59, TierMedium},
		{60, TierDense},
		{500, TierDense},
	}

	for _, tt := range tests {
		if got := Tier(tt.n); got != tt.want {
			t.Errorf("Tier(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestShape_LabelsAndOrder(t *testing.T) {
	utc := time.UTC
	points := []models.SeriesPoint{
		{TS: "2025-03-10T08:15:00Z", Value: 1.5},
		{TS: "2025-03-10T08:30:00Z", Value: 2.5},
		{TS: "2025-03-10T08:45:00Z", Value: 3.5},
	}

	shaped := Shape(points, utc)
	if len(shaped) != len(points) {
		t.Fatalf("Expected %d points, got %d", len(points), len(shaped))
	}

	wantLabels := []string{"08:15", "08:30", "08:45"}
	for i, p := range shaped {
		if p.Label != wantLabels[i] {
			t.Errorf("Point %d: label = %s, want %s", i, p.Label, wantLabels[i])
		}
		if p.TS != points[i].TS {
			t.Errorf("Point %d: original timestamp not preserved", i)
		}
		if p.Value != points[i].Value {
			t.Errorf("Point %d: value = %v, want %v", i, p.Value, points[i].Value)
		}
	}
}

func TestShape_TimezoneConversion(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	// 12:00 UTC is 09:00 in São Paulo (UTC-3).
	shaped := Shape([]models.SeriesPoint{{TS: "2025-03-10T12:00:00Z", Value: 1}}, sp)
	if shaped[0].Label != "09:00" {
		t.Errorf("Expected 09:00, got %s", shaped[0].Label)
	}
}

func TestShape_AcceptsMultipleTimestampLayouts(t *testing.T) {
	points := []models.SeriesPoint{
		{TS: "2025-03-10T08:15:00.123456Z", Value: 1}, // RFC3339Nano
		{TS: "2025-03-10T08:30:00+00:00", Value: 2},   // RFC3339
		{TS: "2025-03-10T08:45:00", Value: 3},         // naive, no offset
	}

	shaped := Shape(points, time.UTC)
	wantLabels := []string{"08:15", "08:30", "08:45"}
	for i, p := range shaped {
		if p.Label != wantLabels[i] {
			t.Errorf("Point %d: label = %s, want %s", i, p.Label, wantLabels[i])
		}
	}
}

func TestShape_UnparseableTimestampKeepsRawLabel(t *testing.T) {
	shaped := Shape([]models.SeriesPoint{{TS: "ontem", Value: 7}}, time.UTC)
	if len(shaped) != 1 {
		t.Fatalf("Point must not be dropped, got %d points", len(shaped))
	}
	if shaped[0].Label != "ontem" {
		t.Errorf("Expected raw string as label, got %s", shaped[0].Label)
	}
	if shaped[0].Value != 7 {
		t.Errorf("Expected value preserved, got %v", shaped[0].Value)
	}
}

func TestShape_PreservesInputOrder(t *testing.T) {
	// Deliberately non-chronological: backend order is trusted as-is.
	points := []models.SeriesPoint{
		{TS: "2025-03-10T10:00:00Z", Value: 0},
		{TS: "2025-03-10T08:00:00Z", Value: 1},
		{TS: "2025-03-10T09:00:00Z", Value: 2},
	}

	shaped := Shape(points, time.UTC)
	for i, p := range shaped {
		if p.Value != float64(i) {
			t.Fatalf("Order changed at index %d: %+v", i, shaped)
		}
	}
}

func TestShape_EmptyInput(t *testing.T) {
	if shaped := Shape(nil, time.UTC); len(shaped) != 0 {
		t.Errorf("Expected empty output, got %d points", len(shaped))
	}
}

func TestShapeThenTier(t *testing.T) {
	points := make([]models.SeriesPoint, 75)
	for i := range points {
		points[i] = models.SeriesPoint{
			TS:    fmt.Sprintf("2025-03-10T08:%02d:00Z", i%60),
			Value: float64(i),
		}
	}

	shaped := Shape(points, time.UTC)
	if got := Tier(len(shaped)); got != TierDense {
		t.Errorf("Expected dense tier for 75 points, got %s", got)
	}
}
