package series

import (
	"time"

	"aqualink/internal/models"
)

// DensityTier classifies a series by point count and controls how the
// chart renders it: fewer markers as density grows.
type DensityTier string

const (
	// TierSparse: line curve with a visible marker per point
	TierSparse DensityTier = "sparse"
	// TierMedium: line curve, no per-point markers
	TierMedium DensityTier = "medium"
	// TierDense: filled area curve, smoothed, no markers
	TierDense DensityTier = "dense"
)

// Tier boundaries: dense point sets produce unreadable marker clutter,
// so markers disappear at 20 points and the curve switches to a filled
// area at 60.
const (
	mediumThreshold = 20
	denseThreshold  = 60
)

// Tier picks the rendering density for a series of n points
func Tier(n int) DensityTier {
	switch {
	case n >= denseThreshold:
		return TierDense
	case n >= mediumThreshold:
		return TierMedium
	default:
		return TierSparse
	}
}

// timestampFormats are tried in order when parsing backend timestamps
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Shape converts one tag's raw points into chart-ready points, adding a
// localized HH:MM label while preserving timestamp, value and input
// order (backend order is chronological and trusted as-is).
// Unparseable timestamps keep the raw string as label rather than
// dropping the point.
func Shape(points []models.SeriesPoint, loc *time.Location) []models.ChartPoint {
	if loc == nil {
		loc = time.Local
	}
	shaped := make([]models.ChartPoint, len(points))
	for i, p := range points {
		label := p.TS
		for _, layout := range timestampFormats {
			if ts, err := time.Parse(layout, p.TS); err == nil {
				label = ts.In(loc).Format("15:04")
				break
			}
		}
		shaped[i] = models.ChartPoint{
			TS:    p.TS,
			Label: label,
			Value: p.Value,
		}
	}
	return shaped
}
