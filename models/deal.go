package models

import "time"

// Status is the normalized outcome of a deal.
type Status string

const (
	StatusSold    Status = "sold"
	StatusCut     Status = "cut"
	StatusUnknown Status = "unknown"
)

// UnknownCountyKey is the bucket for rows whose county is blank.
const UnknownCountyKey = "unknown"

// DealRecord is one normalized row of the deals sheet.
// Records are shared read-only between filtered views once built.
type DealRecord struct {
	Address       string
	City          string
	SalesforceURL string

	County     string // raw cell
	CountyName string // display name, e.g. "Knox"
	CountyKey  string // lookup key, e.g. "knox"

	StatusRaw string
	Status    Status

	DateRaw string
	Date    *time.Time
	Year    *int

	Buyer          string
	DispoRep       string
	AcquisitionRep string
	Market         string

	ContractPrice          *float64
	AmendedPrice           *float64
	WholesalePrice         *float64
	EffectiveContractPrice *float64
	GrossProfit            *float64

	MAOTier  string
	MAORange string
}

// IsSold reports whether the deal closed.
func (d *DealRecord) IsSold() bool { return d.Status == StatusSold }

// IsCut reports whether the deal was cut loose.
func (d *DealRecord) IsCut() bool { return d.Status == StatusCut }

// PriceRange is a min/max pair; either bound may be absent.
type PriceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// TierRecord is one normalized row of the MAO tiers sheet.
type TierRecord struct {
	CountyKey    string      `json:"county_key"`
	CountyName   string      `json:"county_name"`
	Tier         string      `json:"tier"`
	Range        *PriceRange `json:"range"`
	RangeDisplay string      `json:"range_display"`
}

// QualityReport counts the data-quality issues absorbed during normalization.
type QualityReport struct {
	Rows               int `json:"rows"`
	UnparseableNumbers int `json:"unparseable_numbers"`
	UnparseableDates   int `json:"unparseable_dates"`
	UnknownStatuses    int `json:"unknown_statuses"`
	UnknownCounties    int `json:"unknown_counties"`
}

// HasIssues reports whether any issue was counted.
func (q QualityReport) HasIssues() bool {
	return q.UnparseableNumbers+q.UnparseableDates+q.UnknownStatuses+q.UnknownCounties > 0
}
