package models

// SeriesPoint is a single raw measurement returned by the backend.
// Immutable once received; ordering within a series is the backend's
// chronological ordering and is trusted as-is.
type SeriesPoint struct {
	TS    string  `json:"ts"`             // ISO-8601 timestamp
	Value float64 `json:"value"`          // Numeric reading
	Unit  *string `json:"unit,omitempty"` // Optional unit, may be null
}

// SeriesMap maps a wire tag to its ordered point list
type SeriesMap map[string][]SeriesPoint

// ChartPoint is a renderer-ready point derived from a SeriesPoint
type ChartPoint struct {
	TS    string  `json:"ts"`    // Original timestamp, kept for tooltips and ordering
	Label string  `json:"label"` // Localized HH:MM label for the X axis
	Value float64 `json:"value"`
}

// TimeRange is a preset window for historical queries
type TimeRange struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

// TimeRanges are the selectable window presets, mirroring the UI filter
var TimeRanges = []TimeRange{
	{Label: "Últimos 15 min", Minutes: 15},
	{Label: "Últimas 1 h", Minutes: 60},
	{Label: "Últimas 6 h", Minutes: 360},
	{Label: "Últimas 12 h", Minutes: 720},
	{Label: "Últimas 24 h", Minutes: 1440},
	{Label: "Últimos 7 dias", Minutes: 10080},
	{Label: "Últimos 30 dias", Minutes: 43200},
}

// DefaultTimeRangeMinutes is the initial window (7 days)
const DefaultTimeRangeMinutes = 10080

// ValidTimeRange reports whether minutes matches one of the presets
func ValidTimeRange(minutes int) bool {
	for _, r := range TimeRanges {
		if r.Minutes == minutes {
			return true
		}
	}
	return false
}
