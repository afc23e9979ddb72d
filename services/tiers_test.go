package services

import (
	"testing"

	"deals-dashboard/models"
	"deals-dashboard/utils"
)

func TestNormalizeTiersSynthesizesRange(t *testing.T) {
	table := models.NewTable(
		[]string{"County", "Tier", "MAO Min", "MAO Max"},
		[][]string{{"Davidson", "", "50000", "120000"}},
	)
	recs := NewNormalizer(utils.NewNopLogger()).NormalizeTiers(table)
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.CountyKey != "davidson" {
		t.Errorf("CountyKey = %q", r.CountyKey)
	}
	if r.Tier != DefaultTier {
		t.Errorf("Tier = %q, want %q", r.Tier, DefaultTier)
	}
	if r.RangeDisplay != "50000-120000" {
		t.Errorf("RangeDisplay = %q, want 50000-120000", r.RangeDisplay)
	}
	if r.Range == nil || r.Range.Min == nil || *r.Range.Min != 50000 {
		t.Errorf("Range = %+v", r.Range)
	}
}

func TestNormalizeTiersRangeString(t *testing.T) {
	table := models.NewTable(
		[]string{"Counties", "MAO Tier", "MAO Range", "MAO Min"},
		[][]string{
			{"Knox County", "A", "73%-77%", "0.5"},
			{"Blount", "B", "", "0.68"},
			{"Sevier", "C", "", ""},
		},
	)
	recs := NewNormalizer(utils.NewNopLogger()).NormalizeTiers(table)
	lookup := NewTierLookup(recs)

	knox, ok := lookup.Lookup("knox")
	if !ok {
		t.Fatal("knox not found")
	}
	if knox.RangeDisplay != "73%-77%" {
		t.Errorf("range string should win, got %q", knox.RangeDisplay)
	}
	if knox.Range == nil || *knox.Range.Min != 73 || *knox.Range.Max != 77 {
		t.Errorf("parsed range = %+v", knox.Range)
	}

	blount, _ := lookup.Lookup("Blount County")
	if blount.RangeDisplay != "68%+" {
		t.Errorf("min-only display = %q, want 68%%+", blount.RangeDisplay)
	}

	sevier, ok := lookup.Lookup("sevier")
	if !ok || sevier.Range != nil || sevier.RangeDisplay != "" {
		t.Errorf("rangeless tier should be kept with nil range: %+v", sevier)
	}
}

func TestNormalizeTiersSkipsBlankAndLastWins(t *testing.T) {
	table := models.NewTable(
		[]string{"Area", "Tier"},
		[][]string{
			{"Knox", "B"},
			{"", "A"},
			{"knox county", "A"},
		},
	)
	recs := NewNormalizer(utils.NewNopLogger()).NormalizeTiers(table)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2 (blank county skipped)", len(recs))
	}
	lookup := NewTierLookup(recs)
	if len(lookup) != 1 {
		t.Fatalf("lookup size = %d, want 1", len(lookup))
	}
	if r, _ := lookup.Lookup("Knox"); r.Tier != "A" {
		t.Errorf("Tier = %q, want A (last row wins)", r.Tier)
	}
}

func TestNormalizeTiersEmpty(t *testing.T) {
	n := NewNormalizer(utils.NewNopLogger())
	if recs := n.NormalizeTiers(nil); len(recs) != 0 {
		t.Errorf("nil table gave %d records", len(recs))
	}
	if recs := n.NormalizeTiers(&models.Table{}); len(recs) != 0 {
		t.Errorf("empty table gave %d records", len(recs))
	}
}

func TestFormatRange(t *testing.T) {
	tests := []struct {
		lo, hi *float64
		want   string
	}{
		{ptr(50000), ptr(120000), "50000-120000"},
		{ptr(0.73), ptr(0.77), "73%-77%"},
		{ptr(61), ptr(66), "61%-66%"},
		{ptr(50000), nil, "50000+"},
		{nil, ptr(120000), "<=120000"},
		{nil, nil, ""},
	}
	for _, tt := range tests {
		if got := FormatRange(tt.lo, tt.hi); got != tt.want {
			t.Errorf("FormatRange = %q, want %q", got, tt.want)
		}
	}
}

func TestJoinAndAttachTiers(t *testing.T) {
	lookup := NewTierLookup([]*models.TierRecord{
		{CountyKey: "knox", Tier: "A", RangeDisplay: "73%-77%"},
	})
	records := []*models.DealRecord{deal("Knox", models.StatusSold, 1), deal("Blount", models.StatusSold, 1)}
	JoinTiers(records, lookup)
	if records[0].MAOTier != "A" || records[0].MAORange != "73%-77%" {
		t.Errorf("knox not joined: %+v", records[0])
	}
	if records[1].MAOTier != "" {
		t.Errorf("blount should have no tier, got %q", records[1].MAOTier)
	}

	report := NewAggregator(utils.NewNopLogger()).Summarize(records)
	AttachTiers(report, lookup)
	if c := report.County("knox"); c == nil || c.MAOTier != "A" {
		t.Errorf("summary not tiered: %+v", c)
	}
}

func TestParseRangeStringBounds(t *testing.T) {
	tests := []struct {
		in       string
		min, max *float64
	}{
		{"73%-77%", ptr(73), ptr(77)},
		{"$50,000 - $120,000", ptr(50000), ptr(120000)},
		{"73%+", ptr(73), nil},
		{"≤58%", nil, ptr(58)},
		{"<= 120,000", nil, ptr(120000)},
		{"< 0.6", nil, ptr(0.6)},
	}
	for _, tt := range tests {
		r := parseRangeString(tt.in)
		if r == nil {
			t.Errorf("%q: nil range", tt.in)
			continue
		}
		if !sameBound(r.Min, tt.min) || !sameBound(r.Max, tt.max) {
			t.Errorf("%q: got %s, want %s", tt.in, FormatRange(r.Min, r.Max), FormatRange(tt.min, tt.max))
		}
	}
	if r := parseRangeString("n/a"); r != nil {
		t.Errorf("no numbers should give nil, got %+v", r)
	}
}

func TestUpperBoundRangeIsNotAMinimum(t *testing.T) {
	table := models.NewTable(
		[]string{"County", "Tier", "MAO Range"},
		[][]string{{"Hancock", "D", "≤58%"}},
	)
	lookup := NewTierLookup(NewNormalizer(utils.NewNopLogger()).NormalizeTiers(table))
	s := &models.CountySummary{CountyKey: "hancock"}
	if got := CountyColor(s, models.ViewMAO, lookup); got.Name != BandNone {
		t.Errorf("upper-bound-only tier colored as %q, want none", got.Name)
	}
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
