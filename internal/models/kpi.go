package models

// KPI represents a single named measurement point with its latest reading
type KPI struct {
	ID        string   `json:"id"`         // Internal identifier, underscore-delimited (e.g. "tanque_nivel")
	Label     string   `json:"label"`      // Human-readable name
	Value     *float64 `json:"value"`      // Current reading, nil when no value yet
	Unit      *string  `json:"unit"`       // Display unit (e.g. "mg/L", "pH"), nil when unitless
	Limit     *float64 `json:"limit"`      // Operator-configured alarm threshold, nil when unset
	Category  string   `json:"category"`   // Category slug (e.g. "operacional", "qualidade_da_agua")
	UpdatedAt string   `json:"updated_at"` // Timestamp of the last value refresh
}

// Station holds the ordered KPI list of one treatment stage
type Station struct {
	KPIs []KPI `json:"kpis"`
}

// Meta carries response metadata from the dashboard endpoint
type Meta struct {
	Timestamp string `json:"timestamp"` // Server-side generation time
	Status    string `json:"status"`
}

// Dashboard is the full catalog payload: station key -> station data.
// Snapshots are replaced wholesale on every poll, never merged.
type Dashboard struct {
	Meta Meta               `json:"meta"`
	Data map[string]Station `json:"data"`
}

// StationKPIs returns the KPI list for a station key, or nil if the
// station is absent from the snapshot
func (d *Dashboard) StationKPIs(key string) []KPI {
	if d == nil || d.Data == nil {
		return nil
	}
	return d.Data[key].KPIs
}
