package models

import "time"

// AllCountiesKey is the key of the dataset-wide aggregate summary.
const AllCountiesKey = "ALL"

// CountySummary holds the derived statistics for one county.
type CountySummary struct {
	CountyKey      string   `json:"county_key"`
	CountyName     string   `json:"county_name"`
	SoldCount      int      `json:"sold_count"`
	CutCount       int      `json:"cut_count"`
	UnknownCount   int      `json:"unknown_count"`
	TotalCount     int      `json:"total_count"`
	ConversionRate *float64 `json:"conversion_rate"`
	TotalGP        float64  `json:"total_gp"`
	AverageGP      *float64 `json:"average_gp"`
	TotalWholesale float64  `json:"total_wholesale"`
	BuyerCount     int      `json:"buyer_count"`
	HealthScore    float64  `json:"health_score"`
	MAOTier        string   `json:"mao_tier,omitempty"`
	MAORange       string   `json:"mao_range,omitempty"`
}

// SummaryReport is the aggregator output: one summary per county, sorted by
// key, plus the dataset-wide aggregate.
type SummaryReport struct {
	Counties []*CountySummary `json:"counties"`
	All      *CountySummary   `json:"all"`
}

// County returns the summary for key, or nil.
func (r *SummaryReport) County(key string) *CountySummary {
	if key == AllCountiesKey {
		return r.All
	}
	for _, c := range r.Counties {
		if c.CountyKey == key {
			return c
		}
	}
	return nil
}

// BuyerSummary holds sold-only statistics for one buyer.
type BuyerSummary struct {
	Buyer       string   `json:"buyer"`
	SoldCount   int      `json:"sold_count"`
	TotalGP     float64  `json:"total_gp"`
	AverageGP   *float64 `json:"average_gp"`
	CountyCount int      `json:"county_count"`
}

// OverallStats is the sidebar headline block.
type OverallStats struct {
	SoldTotal     int    `json:"sold_total"`
	CutTotal      int    `json:"cut_total"`
	TotalDeals    int    `json:"total_deals"`
	TotalBuyers   int    `json:"total_buyers"`
	CloseRateText string `json:"close_rate"`
}

// Recommendation is the closed set of feasibility outcomes.
type Recommendation string

const (
	Recommend        Recommendation = "recommend"
	Caution          Recommendation = "caution"
	DoNotRecommend   Recommendation = "do_not_recommend"
	InsufficientData Recommendation = "insufficient_data"
)

// FeasibilityResult is the calculator output for one (county, price) pair.
type FeasibilityResult struct {
	CountyKey       string         `json:"county_key"`
	ProposedPrice   float64        `json:"proposed_price"`
	Recommendation  Recommendation `json:"recommendation"`
	ReasonTag       string         `json:"reason_tag"`
	Confidence      string         `json:"confidence"`
	SoldCount       int            `json:"sold_count"`
	CutCount        int            `json:"cut_count"`
	SoldCeiling     *float64       `json:"sold_ceiling"`
	AverageSold     *float64       `json:"average_sold"`
	TailThreshold   *float64       `json:"tail_threshold"`
	TailCutRate     *float64       `json:"tail_cut_rate"`
	TailSample      int            `json:"tail_sample"`
	AtPriceCutRate  *float64       `json:"at_price_cut_rate"`
	AtPriceSample   int            `json:"at_price_sample"`
	BinSize         float64        `json:"bin_size"`
	Bins            []PriceBin     `json:"bins"`
	Rationale       []string       `json:"rationale"`
	RationaleString string         `json:"rationale_text"`
}

// PriceBin is the cut rate of the county's deals within [Low, High).
type PriceBin struct {
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	N       int     `json:"n"`
	CutRate float64 `json:"cut_rate"`
}

// StatusMode selects which outcomes a filtered view keeps.
type StatusMode string

const (
	StatusModeAll  StatusMode = "all"
	StatusModeSold StatusMode = "sold"
	StatusModeCut  StatusMode = "cut"
	StatusModeBoth StatusMode = "both"
)

// YearAll and YearLast12Months are the non-numeric year choices.
const (
	YearAll          = "all"
	YearLast12Months = "last-12-months"
)

// FilterSpec is the declarative filter configuration. Blank or "all" fields
// apply no filter. Now anchors the rolling 12-month window.
type FilterSpec struct {
	Year           string     `json:"year"`
	StatusMode     StatusMode `json:"status_mode"`
	Buyer          string     `json:"buyer"`
	DispoRep       string     `json:"dispo_rep"`
	AcquisitionRep string     `json:"acquisition_rep"`
	Market         string     `json:"market"`
	Now            time.Time  `json:"-"`
}

// FilterOptions lists the distinct values available for each filter.
type FilterOptions struct {
	Years           []int    `json:"years"`
	Buyers          []string `json:"buyers"`
	DispoReps       []string `json:"dispo_reps"`
	AcquisitionReps []string `json:"acquisition_reps"`
	Markets         []string `json:"markets"`
	Counties        []string `json:"counties"`
}

// ViewMode selects the palette used by the color mapper.
type ViewMode string

const (
	ViewSold      ViewMode = "sold"
	ViewSoldBuyer ViewMode = "sold-buyer"
	ViewCut       ViewMode = "cut"
	ViewBoth      ViewMode = "both"
	ViewHealth    ViewMode = "health"
	ViewMAO       ViewMode = "mao"
)

// ColorBand is a named display band.
type ColorBand struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Trend compares a 12-month window to the prior 12 months.
type Trend struct {
	Key    string `json:"key"`
	Last12 int    `json:"last12"`
	Prev12 int    `json:"prev12"`
	Delta  int    `json:"delta"`
}

// PropertyRow is one deal as listed in a county's property table.
type PropertyRow struct {
	Address       string `json:"address"`
	City          string `json:"city"`
	SalesforceURL string `json:"salesforce_url"`
	Status        string `json:"status"`
	Buyer         string `json:"buyer"`
	Date          string `json:"date"`
}

// BuyerCount is one entry of a per-county buyer ranking.
type BuyerCount struct {
	Buyer string `json:"buyer"`
	Count int    `json:"count"`
}
