package services

import (
	"reflect"
	"testing"
	"time"

	"deals-dashboard/models"
)

func filterRecords() []*models.DealRecord {
	a := dated(soldDeal("Knox", "Acme", 100000, 5000), "2024-05-01")
	a.DispoRep, a.Market = "Dana", "East"
	b := dated(soldDeal("Knox", "Beta", 120000, 7000), "2023-02-10")
	b.DispoRep, b.Market = "Dana", "West"
	c := dated(deal("Blount", models.StatusCut, 90000), "2024-01-15")
	c.Market = "East"
	d := deal("Sevier", models.StatusUnknown, 0)
	e := deal("Blount", models.StatusCut, 95000)
	return []*models.DealRecord{a, b, c, d, e}
}

func TestFilterIdentity(t *testing.T) {
	records := filterRecords()
	for _, spec := range []models.FilterSpec{
		{},
		{Year: "all", StatusMode: models.StatusModeAll, Buyer: "all", DispoRep: "All", AcquisitionRep: "", Market: "ALL"},
	} {
		got := Filter(records, spec)
		if !reflect.DeepEqual(got, records) {
			t.Errorf("spec %+v is not identity", spec)
		}
	}
}

func TestFilterIdempotent(t *testing.T) {
	records := filterRecords()
	spec := models.FilterSpec{Year: "2024", StatusMode: models.StatusModeBoth, Market: "East"}
	once := Filter(records, spec)
	twice := Filter(once, spec)
	if !reflect.DeepEqual(once, twice) {
		t.Error("filter is not idempotent")
	}
	if len(once) != 2 {
		t.Errorf("len = %d, want 2", len(once))
	}
}

func TestFilterStatusModes(t *testing.T) {
	records := filterRecords()
	tests := []struct {
		mode models.StatusMode
		want int
	}{
		{models.StatusModeSold, 2},
		{models.StatusModeCut, 2},
		{models.StatusModeBoth, 4},
		{models.StatusModeAll, 5},
		{"", 5},
	}
	for _, tt := range tests {
		if got := len(Filter(records, models.FilterSpec{StatusMode: tt.mode})); got != tt.want {
			t.Errorf("mode %q: len = %d, want %d", tt.mode, got, tt.want)
		}
	}
}

func TestFilterAndSemantics(t *testing.T) {
	records := filterRecords()
	got := Filter(records, models.FilterSpec{Buyer: "Acme", DispoRep: "Dana"})
	if len(got) != 1 || got[0].Buyer != "Acme" {
		t.Errorf("got %d records", len(got))
	}
	if got := Filter(records, models.FilterSpec{Buyer: "Acme", Market: "West"}); len(got) != 0 {
		t.Errorf("disjoint criteria matched %d records", len(got))
	}
}

func TestFilterYear(t *testing.T) {
	records := filterRecords()
	if got := Filter(records, models.FilterSpec{Year: "2023"}); len(got) != 2 {
		t.Errorf("2023: len = %d, want 2", len(got))
	}
	if got := Filter(records, models.FilterSpec{Year: "1999"}); len(got) != 1 {
		t.Errorf("1999: len = %d, want only the undated cut", len(got))
	}
}

func TestFilterYearKeepsUndatedCut(t *testing.T) {
	sold := dated(soldDeal("Knox", "Acme", 100000, 5000), "2024-03-01")
	cut := deal("Knox", models.StatusCut, 90000)
	undatedSold := soldDeal("Knox", "Beta", 80000, 4000)
	records := []*models.DealRecord{sold, cut, undatedSold}

	got := Filter(records, models.FilterSpec{Year: "2024"})
	if len(got) != 2 || got[0] != sold || got[1] != cut {
		t.Errorf("year 2024 kept %d records, want the dated sale and the undated cut", len(got))
	}

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got = Filter(records, models.FilterSpec{Year: models.YearLast12Months, Now: now})
	if len(got) != 2 || got[1] != cut {
		t.Errorf("rolling window kept %d records, want the dated sale and the undated cut", len(got))
	}
}

func TestFilterLast12Months(t *testing.T) {
	records := filterRecords()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got := Filter(records, models.FilterSpec{Year: models.YearLast12Months, Now: now})
	if len(got) != 3 {
		t.Errorf("rolling window: len = %d, want 3", len(got))
	}
	if got := Filter(records, models.FilterSpec{Year: models.YearLast12Months}); len(got) != len(records) {
		t.Errorf("zero Now should not filter, got %d", len(got))
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	records := filterRecords()
	before := append([]*models.DealRecord(nil), records...)
	_ = Filter(records, models.FilterSpec{StatusMode: models.StatusModeSold})
	if !reflect.DeepEqual(records, before) {
		t.Error("input slice was modified")
	}
}

func TestSplitByStatus(t *testing.T) {
	sold, cut := SplitByStatus(filterRecords())
	if len(sold) != 2 || len(cut) != 2 {
		t.Errorf("sold %d cut %d, want 2/2", len(sold), len(cut))
	}
}

func TestOptions(t *testing.T) {
	opts := Options(filterRecords())
	if !reflect.DeepEqual(opts.Years, []int{2023, 2024}) {
		t.Errorf("years = %v", opts.Years)
	}
	if !reflect.DeepEqual(opts.Buyers, []string{"Acme", "Beta"}) {
		t.Errorf("buyers = %v", opts.Buyers)
	}
	if !reflect.DeepEqual(opts.Markets, []string{"East", "West"}) {
		t.Errorf("markets = %v", opts.Markets)
	}
	if !reflect.DeepEqual(opts.Counties, []string{"blount", "knox", "sevier"}) {
		t.Errorf("counties = %v", opts.Counties)
	}
	if len(opts.AcquisitionReps) != 0 {
		t.Errorf("acquisition reps = %v", opts.AcquisitionReps)
	}
}
