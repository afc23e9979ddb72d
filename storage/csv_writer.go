package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
)

var summaryHeader = []string{
	"county_key", "county", "sold", "cut_loose", "unknown", "total",
	"close_rate", "total_gp", "avg_gp", "total_wholesale", "buyers",
	"health_score", "mao_tier", "mao_range",
}

// CSVWriter exports county summaries to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "storage: create output dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: create file %q", path)
	}
	return &CSVWriter{file: f}, nil
}

// WriteSummaries writes the report, replacing anything written before.
func (c *CSVWriter) WriteSummaries(report *models.SummaryReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.file.Truncate(0); err != nil {
		return eris.Wrap(err, "storage: truncate csv")
	}
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return eris.Wrap(err, "storage: seek csv")
	}
	return WriteSummaryCSV(c.file, report)
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}

// WriteSummaryCSV writes one row per county, highest total GP first, then
// the ALL row.
func WriteSummaryCSV(w io.Writer, report *models.SummaryReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return eris.Wrap(err, "storage: write csv header")
	}

	counties := append([]*models.CountySummary(nil), report.Counties...)
	sort.SliceStable(counties, func(i, j int) bool {
		if counties[i].TotalGP != counties[j].TotalGP {
			return counties[i].TotalGP > counties[j].TotalGP
		}
		if counties[i].SoldCount != counties[j].SoldCount {
			return counties[i].SoldCount > counties[j].SoldCount
		}
		return counties[i].CountyKey < counties[j].CountyKey
	})
	if report.All != nil {
		counties = append(counties, report.All)
	}

	for _, s := range counties {
		row := []string{
			s.CountyKey,
			s.CountyName,
			strconv.Itoa(s.SoldCount),
			strconv.Itoa(s.CutCount),
			strconv.Itoa(s.UnknownCount),
			strconv.Itoa(s.TotalCount),
			optFloat(s.ConversionRate, 4),
			fmt.Sprintf("%.2f", s.TotalGP),
			optFloat(s.AverageGP, 2),
			fmt.Sprintf("%.2f", s.TotalWholesale),
			strconv.Itoa(s.BuyerCount),
			fmt.Sprintf("%.1f", s.HealthScore),
			s.MAOTier,
			s.MAORange,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "storage: write csv row")
		}
	}

	cw.Flush()
	return cw.Error()
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
