package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/storage"
	"deals-dashboard/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// StatusError is returned when the export endpoint answers with a non-2xx code.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: GET %s returned %d", e.URL, e.Code)
}

// SheetSource fetches one tab of a published spreadsheet as CSV.
type SheetSource struct {
	name   string
	url    string
	client *http.Client
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// Options configures a SheetSource. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	Client     *http.Client
}

// New creates a SheetSource for the CSV export at url. name is only used in
// log lines.
func New(name, url string, opts Options, logger *utils.Logger) *SheetSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &SheetSource{
		name:   name,
		url:    url,
		client: client,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.BaseDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Load downloads and parses the export. Network failures and 5xx answers are
// retried; 4xx answers are not.
func (s *SheetSource) Load(ctx context.Context) (*models.Table, error) {
	if s.url == "" {
		return nil, eris.Errorf("feed: no URL configured for %s", s.name)
	}

	var table *models.Table
	var permanent error
	err := s.retry.Do(ctx, "fetch "+s.name, func(ctx context.Context) error {
		t, err := s.fetch(ctx)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Code < 500 {
				permanent = err
				return nil
			}
			return err
		}
		table = t
		return nil
	})
	if permanent != nil {
		return nil, permanent
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("[feed] Fetched %s: %d rows, %d columns", s.name, table.Len(), len(table.Columns))
	return table, nil
}

func (s *SheetSource) fetch(ctx context.Context) (*models.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "feed: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: GET %s", s.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: s.url, Code: resp.StatusCode}
	}

	t, err := storage.ReadCSV(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: parse %s", s.name)
	}
	return t, nil
}
