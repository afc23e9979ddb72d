package services

import (
	"sort"
	"strconv"
	"strings"

	"deals-dashboard/models"
)

// Filter returns the records matching every criterion in spec. Blank or
// "all" criteria match everything. A year or rolling-window criterion keeps
// undated cut-loose records so they stay visible. The input slice is not
// modified; the returned slice is new and shares the read-only records.
func Filter(records []*models.DealRecord, spec models.FilterSpec) []*models.DealRecord {
	match := compileFilter(spec)
	out := make([]*models.DealRecord, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

type predicate func(*models.DealRecord) bool

func compileFilter(spec models.FilterSpec) predicate {
	var preds []predicate

	year := strings.ToLower(strings.TrimSpace(spec.Year))
	switch {
	case isAll(year):
	case year == models.YearLast12Months:
		if !spec.Now.IsZero() {
			end := spec.Now
			start := end.AddDate(0, -12, 0)
			preds = append(preds, func(r *models.DealRecord) bool {
				if r.Date == nil {
					return r.IsCut()
				}
				return !r.Date.Before(start) && !r.Date.After(end)
			})
		}
	default:
		if y, err := strconv.Atoi(year); err == nil {
			preds = append(preds, func(r *models.DealRecord) bool {
				if r.Year == nil {
					return r.IsCut()
				}
				return *r.Year == y
			})
		}
	}

	switch models.StatusMode(strings.ToLower(strings.TrimSpace(string(spec.StatusMode)))) {
	case models.StatusModeSold:
		preds = append(preds, func(r *models.DealRecord) bool { return r.IsSold() })
	case models.StatusModeCut:
		preds = append(preds, func(r *models.DealRecord) bool { return r.IsCut() })
	case models.StatusModeBoth:
		preds = append(preds, func(r *models.DealRecord) bool { return r.IsSold() || r.IsCut() })
	}

	if v := strings.TrimSpace(spec.Buyer); !isAll(strings.ToLower(v)) {
		preds = append(preds, func(r *models.DealRecord) bool { return r.Buyer == v })
	}
	if v := strings.TrimSpace(spec.DispoRep); !isAll(strings.ToLower(v)) {
		preds = append(preds, func(r *models.DealRecord) bool { return r.DispoRep == v })
	}
	if v := strings.TrimSpace(spec.AcquisitionRep); !isAll(strings.ToLower(v)) {
		preds = append(preds, func(r *models.DealRecord) bool { return r.AcquisitionRep == v })
	}
	if v := strings.TrimSpace(spec.Market); !isAll(strings.ToLower(v)) {
		preds = append(preds, func(r *models.DealRecord) bool { return r.Market == v })
	}

	return func(r *models.DealRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func isAll(lower string) bool {
	return lower == "" || lower == "all"
}

// SplitByStatus partitions records into sold and cut views; unknown
// statuses are left out of both.
func SplitByStatus(records []*models.DealRecord) (sold, cut []*models.DealRecord) {
	for _, r := range records {
		switch r.Status {
		case models.StatusSold:
			sold = append(sold, r)
		case models.StatusCut:
			cut = append(cut, r)
		}
	}
	return sold, cut
}

// Options lists the distinct values available to each filter, sorted.
// Buyers come from sold records only.
func Options(records []*models.DealRecord) models.FilterOptions {
	years := make(map[int]struct{})
	buyers := make(map[string]struct{})
	dispo := make(map[string]struct{})
	acq := make(map[string]struct{})
	markets := make(map[string]struct{})
	counties := make(map[string]struct{})

	for _, r := range records {
		if r.Year != nil {
			years[*r.Year] = struct{}{}
		}
		if r.IsSold() && r.Buyer != "" {
			buyers[r.Buyer] = struct{}{}
		}
		addNonEmpty(dispo, r.DispoRep)
		addNonEmpty(acq, r.AcquisitionRep)
		addNonEmpty(markets, r.Market)
		counties[r.CountyKey] = struct{}{}
	}

	opts := models.FilterOptions{
		Years:           make([]int, 0, len(years)),
		Buyers:          sortedKeys(buyers),
		DispoReps:       sortedKeys(dispo),
		AcquisitionReps: sortedKeys(acq),
		Markets:         sortedKeys(markets),
		Counties:        sortedKeys(counties),
	}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	sort.Ints(opts.Years)
	return opts
}

func addNonEmpty(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
