package catalog

import (
	"sort"
	"strings"

	"aqualink/internal/models"
)

// StationKeys returns the sorted keys of stations that actually carry
// KPIs. Stations with an empty KPI list are dropped so the UI never
// shows empty tabs; the set is derived, never hard-coded.
func StationKeys(d *models.Dashboard) []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Data))
	for key, station := range d.Data {
		if len(station.KPIs) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// StationEntry pairs a station key with its display label
type StationEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// StationsList formats station keys for the tabs component
func StationsList(keys []string) []StationEntry {
	list := make([]StationEntry, 0, len(keys))
	for _, key := range keys {
		list = append(list, StationEntry{Key: key, Label: strings.ToUpper(key)})
	}
	return list
}

// ActiveTags computes the deduplicated, sorted wire-tag list the series
// fetcher should request for one station.
//
// Filters are global across stations, but a chart view only shows the
// current station, so filter ids referencing other stations are
// silently dropped. An empty filter set means "everything in this
// station". Sorting keeps the result referentially stable for the same
// logical selection, which the fetcher relies on for cheap dedup.
func ActiveTags(stationKPIs []models.KPI, filters map[string]struct{}) []string {
	stationIDs := make(map[string]struct{}, len(stationKPIs))
	for _, k := range stationKPIs {
		stationIDs[k.ID] = struct{}{}
	}

	var ids []string
	if len(filters) > 0 {
		for id := range filters {
			if _, ok := stationIDs[id]; ok {
				ids = append(ids, id)
			}
		}
	} else {
		for _, k := range stationKPIs {
			ids = append(ids, k.ID)
		}
	}

	seen := make(map[string]struct{}, len(ids))
	tags := make([]string, 0, len(ids))
	for _, id := range ids {
		tag := IDToTag(id)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// AllKPIs flattens every station's KPI list into a single deduplicated
// slice, first occurrence wins, useful for search and filter pickers
func AllKPIs(d *models.Dashboard) []models.KPI {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var all []models.KPI
	for _, key := range StationKeys(d) {
		for _, k := range d.Data[key].KPIs {
			if _, dup := seen[k.ID]; dup {
				continue
			}
			seen[k.ID] = struct{}{}
			all = append(all, k)
		}
	}
	return all
}

// KPIs returns a station's KPI list, optionally narrowed to one category
func KPIs(d *models.Dashboard, stationKey, category string) []models.KPI {
	kpis := d.StationKPIs(stationKey)
	if category == "" {
		return kpis
	}
	var filtered []models.KPI
	for _, k := range kpis {
		if k.Category == category {
			filtered = append(filtered, k)
		}
	}
	return filtered
}
