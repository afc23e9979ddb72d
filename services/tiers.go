package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"deals-dashboard/models"
)

// DefaultTier labels counties whose tier cell is blank.
const DefaultTier = "Unrated"

var rangeNumberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

var tierFieldAliases = []struct {
	field   string
	aliases []string
}{
	{"county", []string{"county", "counties", "countyname"}},
	{"tier", []string{"tier", "maotier"}},
	{"range", []string{"maorange", "maorangestr", "range"}},
	{"min", []string{"maomin", "min", "minmao"}},
	{"max", []string{"maomax", "max", "maxmao"}},
}

// TierLookup indexes tier records by county key.
type TierLookup map[string]*models.TierRecord

// NewTierLookup indexes records; a later record for the same county wins.
func NewTierLookup(records []*models.TierRecord) TierLookup {
	l := make(TierLookup, len(records))
	for _, r := range records {
		l[r.CountyKey] = r
	}
	return l
}

// Lookup finds the tier for a county given in any spelling.
func (l TierLookup) Lookup(county string) (*models.TierRecord, bool) {
	r, ok := l[CountyKey(county)]
	return r, ok
}

// Records returns the indexed records sorted by county key.
func (l TierLookup) Records() []*models.TierRecord {
	out := make([]*models.TierRecord, 0, len(l))
	for _, r := range l {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountyKey < out[j].CountyKey })
	return out
}

// NormalizeTiers converts the MAO tiers sheet. It never fails: a table
// without a recognizable county column uses its first column, blank tiers
// become DefaultTier, and rows without any range keep a nil Range.
func (n *Normalizer) NormalizeTiers(table *models.Table) []*models.TierRecord {
	if table == nil || len(table.Columns) == 0 {
		return nil
	}

	byKey := make(map[string]string, len(table.Columns))
	for _, c := range table.Columns {
		k := headerKey(c)
		if _, seen := byKey[k]; !seen {
			byKey[k] = c
		}
	}
	cols := make(map[string]string)
	for _, fa := range tierFieldAliases {
		for _, alias := range fa.aliases {
			if col, ok := byKey[alias]; ok {
				cols[fa.field] = col
				break
			}
		}
	}
	if _, ok := cols["county"]; !ok {
		cols["county"] = table.Columns[0]
		n.logger.Warn("[tiers] No county column found, using %q", table.Columns[0])
	}

	out := make([]*models.TierRecord, 0, table.Len())
	skipped := 0
	for _, row := range table.Rows {
		get := func(field string) string {
			col, ok := cols[field]
			if !ok {
				return ""
			}
			return strings.TrimSpace(row[col])
		}

		key := CountyKey(get("county"))
		if key == models.UnknownCountyKey {
			skipped++
			continue
		}

		rec := &models.TierRecord{
			CountyKey:  key,
			CountyName: CountyDisplayName(get("county")),
			Tier:       normaliseText(get("tier")),
		}
		if rec.Tier == "" {
			rec.Tier = DefaultTier
		}

		if rs := normaliseText(get("range")); rs != "" {
			rec.Range = parseRangeString(rs)
			rec.RangeDisplay = rs
		} else {
			lo, _ := parseMoney(get("min"))
			hi, _ := parseMoney(get("max"))
			if lo != nil || hi != nil {
				rec.Range = &models.PriceRange{Min: lo, Max: hi}
				rec.RangeDisplay = FormatRange(lo, hi)
			}
		}

		out = append(out, rec)
	}

	if skipped > 0 {
		n.logger.Warn("[tiers] Skipped %d tier rows with a blank county", skipped)
	}
	n.logger.Info("[tiers] Normalized %d tier rows", len(out))
	return out
}

// parseRangeString pulls up to two numbers out of strings like "73%–77%"
// or "$50,000 - $120,000". A lone number is a lower bound unless it is
// prefixed with "<", "<=" or "≤".
func parseRangeString(s string) *models.PriceRange {
	clean := strings.ReplaceAll(s, ",", "")
	nums := rangeNumberRegexp.FindAllString(clean, 2)
	if len(nums) == 0 {
		return nil
	}
	r := &models.PriceRange{}
	first, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return nil
	}
	if len(nums) == 1 {
		if upperBoundOnly(clean) {
			r.Max = &first
		} else {
			r.Min = &first
		}
		return r
	}
	r.Min = &first
	if v, err := strconv.ParseFloat(nums[1], 64); err == nil {
		r.Max = &v
	}
	return r
}

func upperBoundOnly(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") || strings.HasPrefix(s, "≤") ||
		strings.HasPrefix(strings.ToLower(s), "up to")
}

// FormatRange renders a min/max pair for display. Values up to 1 are treated
// as fractions and values up to 100 as percentages; anything larger is an
// amount. Returns "" when both bounds are nil.
func FormatRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return formatBound(*lo) + "-" + formatBound(*hi)
	case lo != nil:
		return formatBound(*lo) + "+"
	case hi != nil:
		return "<=" + formatBound(*hi)
	default:
		return ""
	}
}

func formatBound(v float64) string {
	switch {
	case v <= 1:
		return fmt.Sprintf("%.0f%%", v*100)
	case v <= 100:
		return fmt.Sprintf("%.0f%%", v)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// JoinTiers copies each county's tier label and range onto its deals.
// It writes to the records, so call it before they are shared.
func JoinTiers(records []*models.DealRecord, lookup TierLookup) {
	for _, r := range records {
		if t, ok := lookup[r.CountyKey]; ok {
			r.MAOTier = t.Tier
			r.MAORange = t.RangeDisplay
		}
	}
}

// AttachTiers copies tier labels onto county summaries.
func AttachTiers(report *models.SummaryReport, lookup TierLookup) {
	if report == nil {
		return
	}
	for _, c := range report.Counties {
		if t, ok := lookup[c.CountyKey]; ok {
			c.MAOTier = t.Tier
			c.MAORange = t.RangeDisplay
		}
	}
}
