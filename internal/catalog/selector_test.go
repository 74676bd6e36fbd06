package catalog

import (
	"reflect"
	"testing"

	"aqualink/internal/models"
)

func testDashboard() *models.Dashboard {
	return &models.Dashboard{
		Data: map[string]models.Station{
			"eta": {KPIs: []models.KPI{
				{ID: "tanque_nivel", Label: "Nível do Tanque"},
				{ID: "tanque_ph", Label: "pH do Tanque"},
			}},
			"carvao": {KPIs: nil},
			"abrandador": {KPIs: []models.KPI{
				{ID: "abrandador_dureza", Label: "Dureza"},
			}},
		},
	}
}

func TestStationKeys_DropsEmptyStations(t *testing.T) {
	keys := StationKeys(testDashboard())

	want := []string{"abrandador", "eta"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("StationKeys = %v, want %v", keys, want)
	}
}

func TestStationKeys_NilDashboard(t *testing.T) {
	if keys := StationKeys(nil); keys != nil {
		t.Errorf("Expected nil keys for nil dashboard, got %v", keys)
	}
}

func TestStationsList(t *testing.T) {
	list := StationsList([]string{"abrandador", "eta"})
	if len(list) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(list))
	}
	if list[0].Key != "abrandador" || list[0].Label != "ABRANDADOR" {
		t.Errorf("Unexpected first entry: %+v", list[0])
	}
	if list[1].Label != "ETA" {
		t.Errorf("Expected upper-case label ETA, got %s", list[1].Label)
	}
}

func TestActiveTags_NoFiltersSelectsEverything(t *testing.T) {
	d := testDashboard()
	tags := ActiveTags(d.StationKPIs("eta"), nil)

	want := []string{"tanque/nivel", "tanque/ph"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("ActiveTags = %v, want %v", tags, want)
	}
}

func TestActiveTags_FilterIntersection(t *testing.T) {
	d := testDashboard()
	filters := map[string]struct{}{"tanque_ph": {}}

	tags := ActiveTags(d.StationKPIs("eta"), filters)
	want := []string{"tanque/ph"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("ActiveTags = %v, want %v", tags, want)
	}
}

func TestActiveTags_FiltersForOtherStationYieldEmpty(t *testing.T) {
	d := testDashboard()
	// The only filtered KPI lives in another station, so the current
	// station has nothing to request.
	filters := map[string]struct{}{"abrandador_dureza": {}}

	tags := ActiveTags(d.StationKPIs("eta"), filters)
	if len(tags) != 0 {
		t.Errorf("Expected empty tag set, got %v", tags)
	}
}

func TestActiveTags_SortedAndDeduplicated(t *testing.T) {
	kpis := []models.KPI{
		{ID: "z_ult"},
		{ID: "a_prim"},
		{ID: "z_ult"}, // duplicate id in the payload
	}
	tags := ActiveTags(kpis, nil)

	want := []string{"a/prim", "z/ult"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("ActiveTags = %v, want %v", tags, want)
	}
}

func TestActiveTags_EmptyStation(t *testing.T) {
	if tags := ActiveTags(nil, nil); len(tags) != 0 {
		t.Errorf("Expected no tags for empty station, got %v", tags)
	}
}

func TestAllKPIs_FlattensAndDeduplicates(t *testing.T) {
	d := &models.Dashboard{
		Data: map[string]models.Station{
			"b": {KPIs: []models.KPI{
				{ID: "shared", Label: "From B"},
				{ID: "b_only"},
			}},
			"a": {KPIs: []models.KPI{
				{ID: "shared", Label: "From A"},
				{ID: "a_only"},
			}},
		},
	}

	all := AllKPIs(d)
	if len(all) != 3 {
		t.Fatalf("Expected 3 KPIs, got %d", len(all))
	}
	// Stations are walked in sorted key order, so the first occurrence
	// of a shared id comes from station "a".
	if all[0].ID != "shared" || all[0].Label != "From A" {
		t.Errorf("Expected first occurrence from station a, got %+v", all[0])
	}
}

func TestKPIs_CategoryFilter(t *testing.T) {
	d := &models.Dashboard{
		Data: map[string]models.Station{
			"eta": {KPIs: []models.KPI{
				{ID: "a", Category: "operacional"},
				{ID: "b", Category: "qualidade"},
				{ID: "c", Category: "operacional"},
			}},
		},
	}

	all := KPIs(d, "eta", "")
	if len(all) != 3 {
		t.Errorf("Expected 3 KPIs without category filter, got %d", len(all))
	}

	op := KPIs(d, "eta", "operacional")
	if len(op) != 2 {
		t.Fatalf("Expected 2 operacional KPIs, got %d", len(op))
	}
	for _, k := range op {
		if k.Category != "operacional" {
			t.Errorf("Unexpected category %s", k.Category)
		}
	}

	if got := KPIs(d, "missing", ""); got != nil {
		t.Errorf("Expected nil for unknown station, got %v", got)
	}
}
