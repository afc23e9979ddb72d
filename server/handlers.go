package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/services"
	"deals-dashboard/storage"
)

var errBadParam = eris.New("invalid query parameter")

// ParseFilter builds a FilterSpec from raw parameter values, rejecting
// values outside the accepted vocabulary.
func ParseFilter(year, status, buyer, dispo, acq, market string) (models.FilterSpec, error) {
	spec := models.FilterSpec{
		Year:           strings.TrimSpace(year),
		StatusMode:     models.StatusMode(strings.ToLower(strings.TrimSpace(status))),
		Buyer:          strings.TrimSpace(buyer),
		DispoRep:       strings.TrimSpace(dispo),
		AcquisitionRep: strings.TrimSpace(acq),
		Market:         strings.TrimSpace(market),
	}

	switch y := strings.ToLower(spec.Year); y {
	case "", models.YearAll, models.YearLast12Months:
		spec.Year = y
	default:
		if _, err := strconv.Atoi(y); err != nil {
			return spec, eris.Wrapf(errBadParam, "year %q", year)
		}
	}

	switch spec.StatusMode {
	case "", models.StatusModeAll, models.StatusModeSold, models.StatusModeCut, models.StatusModeBoth:
	default:
		return spec, eris.Wrapf(errBadParam, "status %q", status)
	}
	return spec, nil
}

// ParseView validates a color view mode; blank means sold.
func ParseView(v string) (models.ViewMode, error) {
	mode := models.ViewMode(strings.ToLower(strings.TrimSpace(v)))
	switch mode {
	case "":
		return models.ViewSold, nil
	case models.ViewSold, models.ViewSoldBuyer, models.ViewCut, models.ViewBoth, models.ViewHealth, models.ViewMAO:
		return mode, nil
	}
	return "", eris.Wrapf(errBadParam, "view %q", v)
}

func (h *Handler) filterFromQuery(c *gin.Context) (models.FilterSpec, error) {
	spec, err := ParseFilter(
		c.Query("year"), c.Query("status"), c.Query("buyer"),
		c.Query("dispo_rep"), c.Query("acquisition_rep"), c.Query("market"),
	)
	spec.Now = h.now()
	return spec, err
}

// view loads the dataset and applies the request's filters. On failure the
// response has already been written.
func (h *Handler) view(c *gin.Context) (*services.Dataset, []*models.DealRecord, bool) {
	spec, err := h.filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	ds, ok := h.dataset(c)
	if !ok {
		return nil, nil, false
	}
	return ds, services.Filter(ds.Deals, spec), true
}

func (h *Handler) dataset(c *gin.Context) (*services.Dataset, bool) {
	ds, err := h.provider.Load(c.Request.Context())
	if err == nil {
		return ds, true
	}

	var schemaErr *services.SchemaError
	if errors.As(err, &schemaErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   schemaErr.Error(),
			"missing": schemaErr.Missing,
		})
		return nil, false
	}
	h.logger.Error("[server] Dataset load failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "could not load deals data"})
	return nil, false
}

type summaryResponse struct {
	Counties []*models.CountySummary     `json:"counties"`
	All      *models.CountySummary       `json:"all"`
	Overall  models.OverallStats         `json:"overall"`
	Colors   map[string]models.ColorBand `json:"colors"`
	Quality  models.QualityReport        `json:"quality"`
	View     models.ViewMode             `json:"view"`
}

// GET /api/summaries
func (h *Handler) Summaries(c *gin.Context) {
	mode, err := ParseView(c.Query("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ds, records, ok := h.view(c)
	if !ok {
		return
	}

	report := h.aggregator.Summarize(records)
	services.AttachTiers(report, ds.Tiers)

	colors := make(map[string]models.ColorBand, len(report.Counties))
	for _, s := range report.Counties {
		colors[s.CountyKey] = services.CountyColor(s, mode, ds.Tiers)
	}

	c.JSON(http.StatusOK, summaryResponse{
		Counties: report.Counties,
		All:      report.All,
		Overall:  h.aggregator.OverallStats(records),
		Colors:   colors,
		Quality:  ds.Quality,
		View:     mode,
	})
}

// GET /api/summaries.csv
func (h *Handler) SummariesCSV(c *gin.Context) {
	ds, records, ok := h.view(c)
	if !ok {
		return
	}
	report := h.aggregator.Summarize(records)
	services.AttachTiers(report, ds.Tiers)

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="county_gp_summary.csv"`)
	c.Status(http.StatusOK)
	if err := storage.WriteSummaryCSV(c.Writer, report); err != nil {
		h.logger.Error("[server] CSV export failed: %v", err)
	}
}

// GET /api/buyers
func (h *Handler) Buyers(c *gin.Context) {
	_, records, ok := h.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"buyers": h.aggregator.BuyerSummaries(records)})
}

// GET /api/options
func (h *Handler) Options(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, services.Options(ds.Deals))
}

// GET /api/trends
func (h *Handler) Trends(c *gin.Context) {
	_, records, ok := h.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counties":   services.CountyTrends(records),
		"buyers":     services.BuyerMomentum(records),
		"top_buyers": services.TopBuyersByCounty(records),
	})
}

// GET /api/properties?county=
func (h *Handler) Properties(c *gin.Context) {
	_, records, ok := h.view(c)
	if !ok {
		return
	}
	props := services.PropertiesByCounty(records)
	if county := strings.TrimSpace(c.Query("county")); county != "" {
		key := services.CountyKey(county)
		rows := props[key]
		if rows == nil {
			rows = []models.PropertyRow{}
		}
		c.JSON(http.StatusOK, gin.H{"county_key": key, "properties": rows})
		return
	}
	c.JSON(http.StatusOK, gin.H{"counties": props})
}

// GET /api/tiers
func (h *Handler) Tiers(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": ds.Tiers.Records()})
}

// GET /api/feasibility?county=&price=
func (h *Handler) Feasibility(c *gin.Context) {
	county := strings.TrimSpace(c.Query("county"))
	if county == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "county required"})
		return
	}
	price, err := services.ParseMoney(c.Query("price"))
	if err != nil || price == nil || *price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a positive number"})
		return
	}

	_, records, ok := h.view(c)
	if !ok {
		return
	}
	res, err := h.calculator.Evaluate(county, *price, records)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/cache/clear
func (h *Handler) ClearCache(c *gin.Context) {
	h.provider.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
