package view

import (
	"sort"

	"aqualink/internal/catalog"
	"aqualink/internal/models"
)

// Phase is the view's position in its lifecycle state machine
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseCatalogLoading Phase = "catalog_loading"
	PhaseCatalogReady   Phase = "catalog_ready"
	PhaseSeriesLoading  Phase = "series_loading"
	PhaseSeriesReady    Phase = "series_ready"
	PhaseCatalogError   Phase = "catalog_error"
	PhaseSeriesError    Phase = "series_error"
)

// noTimestamp is shown while no catalog snapshot carries a server time
const noTimestamp = "--:--:--"

// Snapshot is the point-in-time UI contract of the orchestrator:
// everything the presentation layer needs to render, with no further
// derivation required
type Snapshot struct {
	Phase            Phase                                     `json:"phase"`
	Loading          bool                                      `json:"loading"`
	Error            string                                    `json:"error,omitempty"`
	LastUpdate       string                                    `json:"last_update"`
	StationKeys      []string                                  `json:"station_keys"`
	Stations         []catalog.StationEntry                    `json:"stations"`
	SelectedStation  string                                    `json:"selected_station"`
	SelectedFilters  []string                                  `json:"selected_filters"`
	TimeRangeMinutes int                                       `json:"time_range_minutes"`
	TimeRanges       []models.TimeRange                        `json:"time_ranges"`
	Categories       map[string]catalog.CategoryDescriptor     `json:"categories"`
	ActiveTags       []string                                  `json:"active_tags"`
	NoSeries         bool                                      `json:"no_series"`
}

// Snapshot builds the current UI contract. Error carries the first
// non-empty of catalog error and series error.
func (o *Orchestrator) Snapshot() Snapshot {
	data, fetchLoading, seriesErr := o.fetcher.Result()

	o.mu.RLock()
	defer o.mu.RUnlock()

	lastUpdate := noTimestamp
	if o.catalog != nil && o.catalog.Meta.Timestamp != "" {
		lastUpdate = o.catalog.Meta.Timestamp
	}

	errMsg := o.catalogErr
	if errMsg == "" {
		errMsg = seriesErr
	}

	filters := make([]string, 0, len(o.filters))
	for id := range o.filters {
		filters = append(filters, id)
	}
	sort.Strings(filters)

	var tags []string
	if o.catalog != nil {
		tags = o.activeTagsLocked()
	}

	return Snapshot{
		Phase:            o.phase,
		Loading:          fetchLoading || o.phase == PhaseCatalogLoading || o.phase == PhaseSeriesLoading,
		Error:            errMsg,
		LastUpdate:       lastUpdate,
		StationKeys:      o.stationKeys,
		Stations:         catalog.StationsList(o.stationKeys),
		SelectedStation:  o.effectiveStationLocked(),
		SelectedFilters:  filters,
		TimeRangeMinutes: o.rangeMinutes,
		TimeRanges:       models.TimeRanges,
		Categories:       o.categoryIndex,
		ActiveTags:       tags,
		NoSeries:         len(data) == 0,
	}
}
