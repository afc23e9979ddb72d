package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"deals-dashboard/models"
	"deals-dashboard/utils"
)

// Health score policy. The score is
//
//	100 * (HealthConversionWeight*conversion + HealthProfitWeight*gpScale)
//
// where gpScale is the county's average GP min-max scaled across all
// counties that have one. A missing signal contributes 0.
const (
	HealthConversionWeight = 0.6
	HealthProfitWeight     = 0.4
)

// Aggregator computes county and buyer summaries over normalized deals.
type Aggregator struct {
	logger *utils.Logger
}

// NewAggregator creates an Aggregator with the given logger.
func NewAggregator(logger *utils.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

type countyAcc struct {
	name      string
	sold      int
	cut       int
	unknown   int
	gps       []float64
	wholesale []float64
	buyers    map[string]struct{}
}

func newCountyAcc() *countyAcc {
	return &countyAcc{buyers: make(map[string]struct{})}
}

func (a *countyAcc) add(r *models.DealRecord) {
	// Spellings can differ between rows; keep the smallest name so the
	// result does not depend on row order.
	if a.name == "" || r.CountyName < a.name {
		a.name = r.CountyName
	}

	switch r.Status {
	case models.StatusSold:
		a.sold++
		if r.GrossProfit != nil {
			a.gps = append(a.gps, *r.GrossProfit)
		}
		if r.WholesalePrice != nil {
			a.wholesale = append(a.wholesale, *r.WholesalePrice)
		}
		if r.Buyer != "" {
			a.buyers[r.Buyer] = struct{}{}
		}
	case models.StatusCut:
		a.cut++
	default:
		a.unknown++
	}
}

func (a *countyAcc) summary(key string) *models.CountySummary {
	s := &models.CountySummary{
		CountyKey:      key,
		CountyName:     a.name,
		SoldCount:      a.sold,
		CutCount:       a.cut,
		UnknownCount:   a.unknown,
		TotalCount:     a.sold + a.cut + a.unknown,
		ConversionRate: ConversionRate(a.sold, a.cut),
		TotalGP:        sortedSum(a.gps),
		TotalWholesale: sortedSum(a.wholesale),
		BuyerCount:     len(a.buyers),
	}
	if len(a.gps) > 0 {
		avg := s.TotalGP / float64(len(a.gps))
		s.AverageGP = &avg
	}
	return s
}

// Summarize returns one summary per county key, sorted by key, plus the
// dataset-wide ALL summary. Output does not depend on record order.
func (a *Aggregator) Summarize(records []*models.DealRecord) *models.SummaryReport {
	accs := make(map[string]*countyAcc)
	all := newCountyAcc()

	for _, r := range records {
		acc, ok := accs[r.CountyKey]
		if !ok {
			acc = newCountyAcc()
			accs[r.CountyKey] = acc
		}
		acc.add(r)
		all.add(r)
	}

	report := &models.SummaryReport{Counties: make([]*models.CountySummary, 0, len(accs))}
	for key, acc := range accs {
		report.Counties = append(report.Counties, acc.summary(key))
	}
	sort.Slice(report.Counties, func(i, j int) bool {
		return report.Counties[i].CountyKey < report.Counties[j].CountyKey
	})

	report.All = all.summary(models.AllCountiesKey)
	report.All.CountyName = "All counties"

	lo, hi, ok := gpBounds(report.Counties)
	for _, c := range report.Counties {
		c.HealthScore = HealthScore(c.ConversionRate, c.AverageGP, lo, hi, ok)
	}
	report.All.HealthScore = HealthScore(report.All.ConversionRate, report.All.AverageGP, lo, hi, ok)

	a.logger.Debug("[summary] Summarized %d records into %d counties", len(records), len(report.Counties))
	return report
}

// ConversionRate is sold/(sold+cut), or nil when there is no outcome yet.
func ConversionRate(sold, cut int) *float64 {
	total := sold + cut
	if total == 0 {
		return nil
	}
	rate := float64(sold) / float64(total)
	return &rate
}

// HealthScore combines conversion and scaled average GP into 0-100.
// lo and hi are the average-GP bounds across counties; hasBounds is false
// when no county has an average.
func HealthScore(conversion, avgGP *float64, lo, hi float64, hasBounds bool) float64 {
	var conv, gpScale float64
	if conversion != nil {
		conv = *conversion
	}
	if avgGP != nil && hasBounds {
		if hi > lo {
			gpScale = (*avgGP - lo) / (hi - lo)
		} else {
			gpScale = 1
		}
		gpScale = math.Max(0, math.Min(1, gpScale))
	}
	return round1(100 * (HealthConversionWeight*conv + HealthProfitWeight*gpScale))
}

func gpBounds(counties []*models.CountySummary) (lo, hi float64, ok bool) {
	for _, c := range counties {
		if c.AverageGP == nil {
			continue
		}
		v := *c.AverageGP
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// BuyerSummaries returns sold-only statistics per buyer, most active first.
func (a *Aggregator) BuyerSummaries(records []*models.DealRecord) []*models.BuyerSummary {
	type buyerAcc struct {
		sold     int
		gps      []float64
		counties map[string]struct{}
	}
	accs := make(map[string]*buyerAcc)

	for _, r := range records {
		if !r.IsSold() || r.Buyer == "" {
			continue
		}
		acc, ok := accs[r.Buyer]
		if !ok {
			acc = &buyerAcc{counties: make(map[string]struct{})}
			accs[r.Buyer] = acc
		}
		acc.sold++
		acc.counties[r.CountyKey] = struct{}{}
		if r.GrossProfit != nil {
			acc.gps = append(acc.gps, *r.GrossProfit)
		}
	}

	out := make([]*models.BuyerSummary, 0, len(accs))
	for buyer, acc := range accs {
		s := &models.BuyerSummary{
			Buyer:       buyer,
			SoldCount:   acc.sold,
			TotalGP:     sortedSum(acc.gps),
			CountyCount: len(acc.counties),
		}
		if len(acc.gps) > 0 {
			avg := s.TotalGP / float64(len(acc.gps))
			s.AverageGP = &avg
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SoldCount != out[j].SoldCount {
			return out[i].SoldCount > out[j].SoldCount
		}
		return out[i].Buyer < out[j].Buyer
	})
	return out
}

// OverallStats returns the headline counts for a view.
func (a *Aggregator) OverallStats(records []*models.DealRecord) models.OverallStats {
	var st models.OverallStats
	buyers := make(map[string]struct{})
	for _, r := range records {
		switch r.Status {
		case models.StatusSold:
			st.SoldTotal++
			if r.Buyer != "" {
				buyers[r.Buyer] = struct{}{}
			}
		case models.StatusCut:
			st.CutTotal++
		}
	}
	st.TotalDeals = st.SoldTotal + st.CutTotal
	st.TotalBuyers = len(buyers)
	st.CloseRateText = "N/A"
	if rate := ConversionRate(st.SoldTotal, st.CutTotal); rate != nil {
		st.CloseRateText = fmt.Sprintf("%.1f%%", *rate*100)
	}
	return st
}

// Print writes a console report of the top counties by total GP.
func (a *Aggregator) Print(w io.Writer, r *models.SummaryReport, top int) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 COUNTY DEAL SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	all := r.All
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Deals          : \033[1m%d\033[0m (sold %d, cut loose %d, unknown %d)\n",
		all.TotalCount, all.SoldCount, all.CutCount, all.UnknownCount)
	fmt.Fprintf(w, "  Close rate     : \033[1m%s\033[0m\n", percent(all.ConversionRate))
	fmt.Fprintf(w, "  Total GP       : \033[1;32m%s\033[0m\n", Dollars(&all.TotalGP))
	fmt.Fprintf(w, "  Avg GP / sold  : \033[1;32m%s\033[0m\n", Dollars(all.AverageGP))
	fmt.Fprintf(w, "  Buyers         : \033[1m%d\033[0m\n", all.BuyerCount)
	fmt.Fprintln(w)

	counties := append([]*models.CountySummary(nil), r.Counties...)
	sort.SliceStable(counties, func(i, j int) bool {
		if counties[i].TotalGP != counties[j].TotalGP {
			return counties[i].TotalGP > counties[j].TotalGP
		}
		return counties[i].SoldCount > counties[j].SoldCount
	})
	if top > 0 && len(counties) > top {
		counties = counties[:top]
	}

	fmt.Fprintf(w, "\033[1;33m  Counties by total GP\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counties) == 0 {
		fmt.Fprintf(w, "  No deals in the current view\n")
	}
	for i, c := range counties {
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-18s sold %3d  cut %3d  close %6s  GP %12s  health %5.1f\n",
			i+1, truncate(c.CountyName, 18), c.SoldCount, c.CutCount,
			percent(c.ConversionRate), Dollars(&c.TotalGP), c.HealthScore)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// Dollars formats a value as whole-dollar currency, or "—" when nil.
func Dollars(v *float64) string {
	if v == nil {
		return "—"
	}
	n := int64(math.Round(math.Abs(*v)))
	if *v < 0 && n > 0 {
		return "-$" + humanize.Comma(n)
	}
	return "$" + humanize.Comma(n)
}

func percent(rate *float64) string {
	if rate == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *rate*100)
}

// sortedSum adds values in ascending order so the float result is the same
// for any input order.
func sortedSum(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var total float64
	for _, v := range sorted {
		total += v
	}
	return total
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
