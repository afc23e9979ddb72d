package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
)

// CSVSource reads a spreadsheet export from a local file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load reads the whole file. The context is only checked before opening.
func (s *CSVSource) Load(ctx context.Context) (*models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "storage: csv load")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: open csv %q", s.path)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read csv %q", s.path)
	}
	return t, nil
}

// ReadCSV parses a CSV stream whose first record is the header. Ragged rows
// are tolerated. An empty stream yields an empty table.
func ReadCSV(r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &models.Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: read csv header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "storage: read csv rows")
	}

	rows := records[:0]
	for _, rec := range records {
		if !blankRecord(rec) {
			rows = append(rows, rec)
		}
	}
	return models.NewTable(header, rows), nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
