package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/utils"
)

// Feasibility policy. Tune here; the calculator reads nothing else.
const (
	// TailPercentile marks the start of the county's top price band.
	TailPercentile = 0.90
	// MinTailSample is the smallest band whose cut rate is trusted.
	MinTailSample = 3
	// TailRedCutRate and TailCautionCutRate grade the top-band cut rate.
	TailRedCutRate     = 0.50
	TailCautionCutRate = 0.25
	// AtPriceRedCutRate is the hard stop for deals priced at or above the input.
	AtPriceRedCutRate = 0.90
	// AverageGuardrail is the multiple of the average sold price that still
	// counts as contractable.
	AverageGuardrail = 1.10

	HighConfidenceN   = 30
	MediumConfidenceN = 15
)

// binParams picks the price-bin width and the smallest bin worth showing
// for a county with n priced deals.
func binParams(n int) (step float64, minBinN int) {
	switch {
	case n >= 40:
		return 5000, 6
	case n >= 20:
		return 5000, 5
	case n >= 10:
		return 10000, 4
	default:
		return 20000, 3
	}
}

// ErrInvalidPrice is returned for a non-positive or non-finite price.
var ErrInvalidPrice = eris.New("services: proposed price must be a positive number")

// Calculator produces feasibility recommendations from deal history.
type Calculator struct {
	logger *utils.Logger
}

// NewCalculator creates a Calculator with the given logger.
func NewCalculator(logger *utils.Logger) *Calculator {
	return &Calculator{logger: logger}
}

type pricedDeal struct {
	price float64
	cut   bool
}

// Evaluate scores a proposed price for a county against records (usually
// the current filtered view). The result depends only on its inputs. A
// county without sold history yields InsufficientData, not an error.
func (c *Calculator) Evaluate(county string, price float64, records []*models.DealRecord) (*models.FeasibilityResult, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, ErrInvalidPrice
	}
	key := CountyKey(county)

	var deals []pricedDeal
	var soldPrices []float64
	for _, r := range records {
		if r.CountyKey != key || r.EffectiveContractPrice == nil {
			continue
		}
		switch r.Status {
		case models.StatusSold:
			deals = append(deals, pricedDeal{price: *r.EffectiveContractPrice})
			soldPrices = append(soldPrices, *r.EffectiveContractPrice)
		case models.StatusCut:
			deals = append(deals, pricedDeal{price: *r.EffectiveContractPrice, cut: true})
		}
	}
	sort.Slice(deals, func(i, j int) bool {
		if deals[i].price != deals[j].price {
			return deals[i].price < deals[j].price
		}
		return !deals[i].cut && deals[j].cut
	})

	res := &models.FeasibilityResult{
		CountyKey:     key,
		ProposedPrice: price,
		SoldCount:     len(soldPrices),
		CutCount:      len(deals) - len(soldPrices),
		Confidence:    confidenceLabel(len(deals)),
	}
	step, minBinN := binParams(len(deals))
	res.BinSize = step
	res.Bins = priceBins(deals, step, minBinN)

	if len(soldPrices) == 0 {
		res.Recommendation = models.InsufficientData
		res.ReasonTag = "no_sold_history"
		res.Rationale = []string{
			fmt.Sprintf("No sold deals with a price on record for %s (%d cut loose)", key, res.CutCount),
		}
		res.RationaleString = strings.Join(res.Rationale, "; ")
		c.logger.Debug("[feasibility] %s: insufficient data", key)
		return res, nil
	}

	ceiling := maxFloat(soldPrices)
	avg := sortedSum(soldPrices) / float64(len(soldPrices))
	res.SoldCeiling = &ceiling
	res.AverageSold = &avg

	threshold := nearestRank(deals, TailPercentile)
	res.TailThreshold = &threshold
	res.TailCutRate, res.TailSample = cutRateAtOrAbove(deals, threshold)
	if res.TailSample < MinTailSample {
		res.TailCutRate = nil
	}
	res.AtPriceCutRate, res.AtPriceSample = cutRateAtOrAbove(deals, price)

	inTail := price >= threshold
	switch {
	case price > ceiling:
		res.Recommendation, res.ReasonTag = models.DoNotRecommend, "above_sold_ceiling"
	case res.AtPriceCutRate != nil && *res.AtPriceCutRate >= AtPriceRedCutRate && res.AtPriceSample >= MinTailSample:
		res.Recommendation, res.ReasonTag = models.DoNotRecommend, "at_price_cut_rate"
	case inTail && res.TailCutRate != nil && *res.TailCutRate >= TailRedCutRate:
		res.Recommendation, res.ReasonTag = models.DoNotRecommend, "tail_cut_rate"
	case inTail && res.TailCutRate != nil && *res.TailCutRate >= TailCautionCutRate:
		res.Recommendation, res.ReasonTag = models.Caution, "tail_cut_rate"
	case price > avg*AverageGuardrail:
		res.Recommendation, res.ReasonTag = models.Caution, "above_average_guardrail"
	default:
		res.Recommendation, res.ReasonTag = models.Recommend, "within_history"
	}

	res.Rationale = []string{
		fmt.Sprintf("Sold ceiling %s: proposed %s is %s", Dollars(&ceiling), Dollars(&price), compareWord(price, ceiling)),
		fmt.Sprintf("Average sold price %s (guardrail %s)", Dollars(&avg), Dollars(floatPtr(avg*AverageGuardrail))),
		tailLine(res),
		atPriceLine(res),
		fmt.Sprintf("History: %d sold, %d cut loose (%s confidence)", res.SoldCount, res.CutCount, res.Confidence),
	}
	res.RationaleString = strings.Join(res.Rationale, "; ")

	c.logger.Debug("[feasibility] %s @ %.0f -> %s (%s)", key, price, res.Recommendation, res.ReasonTag)
	return res, nil
}

// nearestRank returns the p-th percentile price of sorted deals.
func nearestRank(sorted []pricedDeal, p float64) float64 {
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].price
}

// cutRateAtOrAbove is the cut share among deals priced >= price.
func cutRateAtOrAbove(deals []pricedDeal, price float64) (*float64, int) {
	n, cut := 0, 0
	for _, d := range deals {
		if d.price >= price {
			n++
			if d.cut {
				cut++
			}
		}
	}
	if n == 0 {
		return nil, 0
	}
	rate := float64(cut) / float64(n)
	return &rate, n
}

// priceBins buckets deals by floor(price/step) and reports each bucket's cut
// rate in ascending price order. Buckets under minN deals are left out.
func priceBins(deals []pricedDeal, step float64, minN int) []models.PriceBin {
	type tally struct{ n, cut int }
	byLow := make(map[float64]*tally)
	for _, d := range deals {
		low := math.Floor(d.price/step) * step
		t, ok := byLow[low]
		if !ok {
			t = &tally{}
			byLow[low] = t
		}
		t.n++
		if d.cut {
			t.cut++
		}
	}

	bins := make([]models.PriceBin, 0, len(byLow))
	for low, t := range byLow {
		if t.n < minN {
			continue
		}
		bins = append(bins, models.PriceBin{
			Low:     low,
			High:    low + step,
			N:       t.n,
			CutRate: float64(t.cut) / float64(t.n),
		})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Low < bins[j].Low })
	return bins
}

func tailLine(res *models.FeasibilityResult) string {
	if res.TailCutRate == nil {
		return fmt.Sprintf("Top-band cut rate at %s and above: not enough deals (%d, need %d)",
			Dollars(res.TailThreshold), res.TailSample, MinTailSample)
	}
	return fmt.Sprintf("Top-band cut rate at %s and above: %s of %d deals",
		Dollars(res.TailThreshold), percent(res.TailCutRate), res.TailSample)
}

func atPriceLine(res *models.FeasibilityResult) string {
	if res.AtPriceCutRate == nil {
		return fmt.Sprintf("At %s and above: no deals on record", Dollars(&res.ProposedPrice))
	}
	outOf10 := int(math.Round(*res.AtPriceCutRate * 10))
	return fmt.Sprintf("At %s and above: about %d out of 10 deals got cut loose (based on %d deals)",
		Dollars(&res.ProposedPrice), outOf10, res.AtPriceSample)
}

func compareWord(price, ceiling float64) string {
	switch {
	case price > ceiling:
		return "above"
	case price == ceiling:
		return "at"
	default:
		return "below"
	}
}

func confidenceLabel(n int) string {
	switch {
	case n >= HighConfidenceN:
		return "high"
	case n >= MediumConfidenceN:
		return "medium"
	default:
		return "low"
	}
}

func maxFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func floatPtr(v float64) *float64 { return &v }
