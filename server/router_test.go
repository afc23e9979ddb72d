package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/services"
	"deals-dashboard/utils"
)

type stubProvider struct {
	ds      *services.Dataset
	err     error
	cleared int
}

func (s *stubProvider) Load(ctx context.Context) (*services.Dataset, error) {
	return s.ds, s.err
}

func (s *stubProvider) Clear() { s.cleared++ }

func sampleDataset(t *testing.T) *services.Dataset {
	t.Helper()
	deals := models.NewTable(
		[]string{"Address", "City", "County", "Salesforce_URL", "Status", "Date", "Buyer", "Contract Price", "Wholesale Price"},
		[][]string{
			{"1 Main St", "Knoxville", "Knox County", "https://sf/1", "Sold", "2024-03-01", "Acme", "100000", "110000"},
			{"2 Oak Ave", "Knoxville", "knox", "https://sf/2", "Cut Loose", "2024-04-01", "", "150000", ""},
			{"3 Elm Rd", "Maryville", "Blount", "https://sf/3", "Sold", "2023-06-15", "Beta", "80000", "95000"},
		},
	)
	tiers := models.NewTable(
		[]string{"County", "Tier", "MAO Min", "MAO Max"},
		[][]string{{"Knox", "A", "0.73", "0.77"}},
	)
	ds, err := services.BuildDataset(services.NewNormalizer(utils.NewNopLogger()), "fp", deals, tiers)
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	return ds
}

func newTestRouter(p DatasetProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	now := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return NewRouter(NewHandler(p, utils.NewNopLogger(), now))
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := do(newTestRouter(&stubProvider{}), http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestSummaries(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	w := do(r, http.MethodGet, "/api/summaries?view=mao")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp summaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Counties) != 2 {
		t.Fatalf("counties = %d, want 2", len(resp.Counties))
	}
	if resp.Counties[0].CountyKey != "blount" || resp.Counties[1].CountyKey != "knox" {
		t.Errorf("unexpected county order: %s, %s", resp.Counties[0].CountyKey, resp.Counties[1].CountyKey)
	}
	if resp.All.TotalCount != 3 {
		t.Errorf("ALL total = %d, want 3", resp.All.TotalCount)
	}
	if got := resp.Colors["knox"].Name; got != "tier-a" {
		t.Errorf("knox MAO color = %q, want tier-a", got)
	}
	if got := resp.Colors["blount"].Name; got != services.BandNone {
		t.Errorf("blount MAO color = %q, want none", got)
	}
}

func TestSummariesStatusFilter(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	w := do(r, http.MethodGet, "/api/summaries?status=cut")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.All.CutCount != 1 || resp.All.SoldCount != 0 {
		t.Errorf("ALL = sold %d cut %d, want 0/1", resp.All.SoldCount, resp.All.CutCount)
	}
}

func TestBadParameters(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	targets := []string{
		"/api/summaries?status=pending",
		"/api/summaries?year=abc",
		"/api/summaries?view=heat",
		"/api/feasibility?county=knox",
		"/api/feasibility?county=knox&price=-5",
		"/api/feasibility?price=1000",
	}
	for _, target := range targets {
		if w := do(r, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestSchemaErrorIs422(t *testing.T) {
	schemaErr := &services.SchemaError{Table: "deals", Missing: []string{"Salesforce_URL"}}
	p := &stubProvider{err: eris.Wrap(schemaErr, "services: build dataset")}
	w := do(newTestRouter(p), http.MethodGet, "/api/summaries")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Salesforce_URL") {
		t.Errorf("body should name the missing column: %s", w.Body.String())
	}
}

func TestLoadFailureIs502(t *testing.T) {
	p := &stubProvider{err: eris.New("connection refused")}
	if w := do(newTestRouter(p), http.MethodGet, "/api/options"); w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestFeasibility(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	w := do(r, http.MethodGet, "/api/feasibility?county=Knox%20County&price=500000")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res models.FeasibilityResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.CountyKey != "knox" {
		t.Errorf("county = %q, want knox", res.CountyKey)
	}
	if res.Recommendation != models.DoNotRecommend {
		t.Errorf("recommendation = %q, want do_not_recommend", res.Recommendation)
	}
}

func TestSummariesCSV(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	w := do(r, http.MethodGet, "/api/summaries.csv")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if lines := strings.Count(w.Body.String(), "\n"); lines != 4 {
		t.Errorf("lines = %d, want header + 2 counties + ALL", lines)
	}
}

func TestClearCache(t *testing.T) {
	p := &stubProvider{ds: sampleDataset(t)}
	if w := do(newTestRouter(p), http.MethodPost, "/api/cache/clear"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if p.cleared != 1 {
		t.Errorf("cleared = %d, want 1", p.cleared)
	}
}

func TestParseFilter(t *testing.T) {
	spec, err := ParseFilter(" 2024 ", "BOTH", "Acme", "", "", "all")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if spec.Year != "2024" || spec.StatusMode != models.StatusModeBoth || spec.Buyer != "Acme" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if _, err := ParseFilter("Last-12-Months", "", "", "", "", ""); err != nil {
		t.Errorf("rolling window rejected: %v", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestRouter(&stubProvider{})
	if w := do(r, http.MethodGet, "/health"); w.Header().Get(requestIDHeader) == "" {
		t.Error("missing generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want abc-123", got)
	}
}

func TestProperties(t *testing.T) {
	r := newTestRouter(&stubProvider{ds: sampleDataset(t)})
	w := do(r, http.MethodGet, "/api/properties?status=all&county=Knox")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		CountyKey  string               `json:"county_key"`
		Properties []models.PropertyRow `json:"properties"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CountyKey != "knox" || len(resp.Properties) != 2 {
		t.Errorf("got %s with %d properties, want knox with 2", resp.CountyKey, len(resp.Properties))
	}
}
