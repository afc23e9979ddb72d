package services

import (
	"fmt"
	"sort"
	"time"

	"deals-dashboard/models"
)

const trendWindow = 365 * 24 * time.Hour

// CountyTrends compares sold deals per county in the 12 months before the
// latest sold date against the 12 months before that.
func CountyTrends(records []*models.DealRecord) []models.Trend {
	return windowedTrends(records, func(r *models.DealRecord) string { return r.CountyKey })
}

// BuyerMomentum is CountyTrends keyed by buyer instead of county.
func BuyerMomentum(records []*models.DealRecord) []models.Trend {
	return windowedTrends(records, func(r *models.DealRecord) string { return r.Buyer })
}

func windowedTrends(records []*models.DealRecord, keyOf func(*models.DealRecord) string) []models.Trend {
	var anchor time.Time
	for _, r := range records {
		if r.IsSold() && r.Date != nil && r.Date.After(anchor) {
			anchor = *r.Date
		}
	}
	if anchor.IsZero() {
		return nil
	}
	last12Start := anchor.Add(-trendWindow)
	prev12Start := anchor.Add(-2 * trendWindow)

	byKey := make(map[string]*models.Trend)
	for _, r := range records {
		if !r.IsSold() || r.Date == nil {
			continue
		}
		key := keyOf(r)
		if key == "" {
			continue
		}
		d := *r.Date
		inLast := d.After(last12Start) && !d.After(anchor)
		inPrev := d.After(prev12Start) && !d.After(last12Start)
		if !inLast && !inPrev {
			continue
		}
		t, ok := byKey[key]
		if !ok {
			t = &models.Trend{Key: key}
			byKey[key] = t
		}
		if inLast {
			t.Last12++
		} else {
			t.Prev12++
		}
	}

	out := make([]models.Trend, 0, len(byKey))
	for _, t := range byKey {
		t.Delta = t.Last12 - t.Prev12
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Last12 != out[j].Last12 {
			return out[i].Last12 > out[j].Last12
		}
		if out[i].Delta != out[j].Delta {
			return out[i].Delta > out[j].Delta
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// FormatTrend renders a delta with an arrow, e.g. "▲ +3".
func FormatTrend(delta int) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("▲ +%d", delta)
	case delta < 0:
		return fmt.Sprintf("▼ %d", delta)
	default:
		return "→ 0"
	}
}

// TopBuyersByCounty ranks buyers by sold deals within each county.
func TopBuyersByCounty(records []*models.DealRecord) map[string][]models.BuyerCount {
	counts := make(map[string]map[string]int)
	for _, r := range records {
		if !r.IsSold() || r.Buyer == "" {
			continue
		}
		m, ok := counts[r.CountyKey]
		if !ok {
			m = make(map[string]int)
			counts[r.CountyKey] = m
		}
		m[r.Buyer]++
	}

	out := make(map[string][]models.BuyerCount, len(counts))
	for county, m := range counts {
		list := make([]models.BuyerCount, 0, len(m))
		for b, n := range m {
			list = append(list, models.BuyerCount{Buyer: b, Count: n})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}
			return list[i].Buyer < list[j].Buyer
		})
		out[county] = list
	}
	return out
}

// PropertiesByCounty lists the deals in view grouped by county key, in input
// order. A formatted date is preferred over the raw cell.
func PropertiesByCounty(records []*models.DealRecord) map[string][]models.PropertyRow {
	out := make(map[string][]models.PropertyRow)
	for _, r := range records {
		date := r.DateRaw
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		out[r.CountyKey] = append(out[r.CountyKey], models.PropertyRow{
			Address:       r.Address,
			City:          r.City,
			SalesforceURL: r.SalesforceURL,
			Status:        r.StatusRaw,
			Buyer:         r.Buyer,
			Date:          date,
		})
	}
	return out
}
