package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"deals-dashboard/utils"
)

func fastOpts() Options {
	return Options{Timeout: 2 * time.Second, MaxRetries: 3, BaseDelay: time.Millisecond}
}

func TestSheetSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Errorf("missing User-Agent")
		}
		fmt.Fprint(w, "Address,County\n1 Main St,Knox\n2 Oak Ave,Blount\n")
	}))
	defer srv.Close()

	src := New("deals", srv.URL, fastOpts(), utils.NewNopLogger())
	table, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("rows = %d, want 2", table.Len())
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSheetSourceClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New("tiers", srv.URL, fastOpts(), utils.NewNopLogger()).Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestSheetSourceGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := New("deals", srv.URL, fastOpts(), utils.NewNopLogger()).Load(context.Background()); err == nil {
		t.Fatal("expected error after retries")
	}
}

func TestSheetSourceNoURL(t *testing.T) {
	if _, err := New("deals", "", Options{}, utils.NewNopLogger()).Load(context.Background()); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
