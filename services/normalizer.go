package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/utils"
)

var (
	// moneyRegexp validates a money cell once symbols and separators are gone
	moneyRegexp = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
	// punctRegexp matches runs of anything that is not a letter, digit or space
	punctRegexp = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	// countySuffixRegexp drops a trailing "county" (and the old "couty" typo)
	countySuffixRegexp = regexp.MustCompile(`(?i)\s+(county|couty)$`)

	moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "", "USD", "", "usd", "")
)

var blankTokens = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "null": {}, "n/a": {}, "na": {}, "-": {}, "—": {},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06",
	"2006/01/02",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

// Canonical deal fields and the header keys that map to them.
const (
	fieldAddress   = "Address"
	fieldCity      = "City"
	fieldCounty    = "County"
	fieldURL       = "Salesforce_URL"
	fieldStatus    = "Status"
	fieldDate      = "Date"
	fieldBuyer     = "Buyer"
	fieldDispoRep  = "Dispo Rep"
	fieldAcqRep    = "Acquisition Rep"
	fieldMarket    = "Market"
	fieldContract  = "Contract Price"
	fieldAmended   = "Amended Price"
	fieldWholesale = "Wholesale Price"
)

var dealFieldAliases = []struct {
	field   string
	aliases []string
}{
	{fieldAddress, []string{"address", "propertyaddress"}},
	{fieldCity, []string{"city"}},
	{fieldCounty, []string{"county", "countyname"}},
	{fieldURL, []string{"salesforceurl", "sfurl", "url"}},
	{fieldStatus, []string{"status", "dealstatus"}},
	{fieldDate, []string{"date", "closedate", "closingdate"}},
	{fieldBuyer, []string{"buyer", "buyername"}},
	{fieldDispoRep, []string{"disporep"}},
	{fieldAcqRep, []string{"acquisitionrep", "acqrep"}},
	{fieldMarket, []string{"market"}},
	{fieldContract, []string{"contractprice"}},
	{fieldAmended, []string{"amendedprice"}},
	{fieldWholesale, []string{"wholesaleprice"}},
}

// RequiredDealColumns must be present in every deals table.
var RequiredDealColumns = []string{fieldAddress, fieldCity, fieldCounty, fieldURL}

var (
	soldExact    = map[string]struct{}{"sold": {}, "closed": {}, "close": {}, "closing": {}, "settled": {}}
	cutExact     = map[string]struct{}{"cutloose": {}, "cutlose": {}, "cut": {}}
	soldPrefixes = []string{"sold"}
	cutPrefixes  = []string{"cutloose", "cutlose"}
)

// SchemaError reports required columns missing from a source table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table is missing required column(s): %s",
		e.Table, strings.Join(e.Missing, ", "))
}

// Normalizer turns raw deal rows into typed DealRecords.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize validates the required columns and converts every row. Rows are
// never dropped; bad cells become nil or unknown and are counted in the
// returned QualityReport. The only error is *SchemaError.
func (n *Normalizer) Normalize(table *models.Table) ([]*models.DealRecord, models.QualityReport, error) {
	var columns []string
	if table != nil {
		columns = table.Columns
	}
	cols := resolveColumns(columns)

	var missing []string
	for _, req := range RequiredDealColumns {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, models.QualityReport{}, &SchemaError{Table: "deals", Missing: missing}
	}

	quality := models.QualityReport{Rows: table.Len()}
	records := make([]*models.DealRecord, 0, table.Len())

	for _, row := range table.Rows {
		get := func(field string) string {
			col, ok := cols[field]
			if !ok {
				return ""
			}
			return row[col]
		}

		rec := &models.DealRecord{
			Address:        normaliseText(get(fieldAddress)),
			City:           normaliseText(get(fieldCity)),
			SalesforceURL:  strings.TrimSpace(get(fieldURL)),
			County:         get(fieldCounty),
			CountyName:     CountyDisplayName(get(fieldCounty)),
			CountyKey:      CountyKey(get(fieldCounty)),
			StatusRaw:      get(fieldStatus),
			Status:         NormalizeStatus(get(fieldStatus)),
			DateRaw:        get(fieldDate),
			Buyer:          normaliseText(get(fieldBuyer)),
			DispoRep:       normaliseText(get(fieldDispoRep)),
			AcquisitionRep: normaliseText(get(fieldAcqRep)),
			Market:         normaliseText(get(fieldMarket)),
		}

		if rec.CountyKey == models.UnknownCountyKey {
			quality.UnknownCounties++
		}
		if rec.Status == models.StatusUnknown && !isBlank(rec.StatusRaw) {
			quality.UnknownStatuses++
		}

		date, ok := parseDate(rec.DateRaw)
		if !ok {
			quality.UnparseableDates++
		}
		if date != nil {
			rec.Date = date
			year := date.Year()
			rec.Year = &year
		}

		rec.ContractPrice = n.money(get(fieldContract), &quality)
		rec.AmendedPrice = n.money(get(fieldAmended), &quality)
		rec.WholesalePrice = n.money(get(fieldWholesale), &quality)

		rec.EffectiveContractPrice = rec.ContractPrice
		if rec.AmendedPrice != nil {
			rec.EffectiveContractPrice = rec.AmendedPrice
		}
		if rec.EffectiveContractPrice != nil && rec.WholesalePrice != nil {
			gp := *rec.EffectiveContractPrice - *rec.WholesalePrice
			rec.GrossProfit = &gp
		}

		records = append(records, rec)
	}

	if quality.HasIssues() {
		n.logger.Warn("[normalizer] %d rows: %d unparseable numbers, %d unparseable dates, %d unknown statuses, %d unknown counties",
			quality.Rows, quality.UnparseableNumbers, quality.UnparseableDates,
			quality.UnknownStatuses, quality.UnknownCounties)
	}
	n.logger.Info("[normalizer] Normalized %d deal rows", len(records))
	return records, quality, nil
}

func (n *Normalizer) money(raw string, quality *models.QualityReport) *float64 {
	v, ok := parseMoney(raw)
	if !ok {
		quality.UnparseableNumbers++
		n.logger.Debug("[normalizer] Unparseable number: %q", raw)
	}
	return v
}

// resolveColumns maps each canonical field to the source column carrying it.
func resolveColumns(columns []string) map[string]string {
	byKey := make(map[string]string, len(columns))
	for _, c := range columns {
		k := headerKey(c)
		if _, seen := byKey[k]; !seen {
			byKey[k] = c
		}
	}

	out := make(map[string]string)
	for _, fa := range dealFieldAliases {
		for _, alias := range fa.aliases {
			if col, ok := byKey[alias]; ok {
				out[fa.field] = col
				break
			}
		}
	}
	return out
}

// headerKey is a header reduced to lowercase letters and digits, so
// "Contract Price", "Contract_Price" and "contract-price" compare equal.
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CountyKey is the lookup key shared by deals and tiers: case-folded, the
// "county" suffix dropped and punctuation and whitespace removed, so
// "De Kalb", "De-Kalb" and "DeKalb" share a key. Blank input maps to
// models.UnknownCountyKey.
func CountyKey(raw string) string {
	s := strings.ToLower(raw)
	if isBlank(s) {
		return models.UnknownCountyKey
	}
	s = punctRegexp.ReplaceAllString(s, " ")
	s = normaliseText(s)
	if s == "county" || s == "couty" {
		return models.UnknownCountyKey
	}
	s = countySuffixRegexp.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return models.UnknownCountyKey
	}
	return s
}

// CountyDisplayName is the human-facing county name, e.g. " KNOX county" -> "Knox".
func CountyDisplayName(raw string) string {
	s := normaliseText(raw)
	if isBlank(strings.ToLower(s)) {
		return "Unknown"
	}
	s = countySuffixRegexp.ReplaceAllString(s, "")
	return titleCase(s)
}

// NormalizeStatus maps a raw status cell to sold, cut or unknown.
func NormalizeStatus(raw string) models.Status {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	compact := b.String()
	if compact == "" {
		return models.StatusUnknown
	}

	if _, ok := soldExact[compact]; ok {
		return models.StatusSold
	}
	if _, ok := cutExact[compact]; ok {
		return models.StatusCut
	}
	for _, p := range cutPrefixes {
		if strings.HasPrefix(compact, p) {
			return models.StatusCut
		}
	}
	for _, p := range soldPrefixes {
		if strings.HasPrefix(compact, p) {
			return models.StatusSold
		}
	}
	return models.StatusUnknown
}

// ErrUnparseableNumber is returned by ParseMoney for cells that are neither
// blank nor a number.
var ErrUnparseableNumber = eris.New("services: unparseable number")

// ParseMoney parses a user-supplied amount such as "$150,000". Blank input
// yields nil.
func ParseMoney(raw string) (*float64, error) {
	v, ok := parseMoney(raw)
	if !ok {
		return nil, eris.Wrapf(ErrUnparseableNumber, "%q", raw)
	}
	return v, nil
}

// parseMoney converts money-like cells ("$74,000", "(1,200)") to a float.
// Blank cells return (nil, true); unparseable cells return (nil, false).
func parseMoney(raw string) (*float64, bool) {
	s := strings.TrimSpace(raw)
	if isBlank(strings.ToLower(s)) {
		return nil, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = moneyReplacer.Replace(s)
	if !moneyRegexp.MatchString(s) {
		return nil, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, false
	}
	if negative {
		v = -v
	}
	return &v, true
}

// parseDate tries each known layout. Blank cells return (nil, true);
// unparseable cells return (nil, false).
func parseDate(raw string) (*time.Time, bool) {
	s := normaliseText(raw)
	if isBlank(strings.ToLower(s)) {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func isBlank(lower string) bool {
	_, ok := blankTokens[strings.TrimSpace(lower)]
	return ok
}
