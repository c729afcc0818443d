package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHTTPRateSourceGetRateParsesUpstreamResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rates/USDT" {
			t.Errorf("path = %s, want /rates/USDT", r.URL.Path)
		}
		w.Write([]byte(`{"rate": "35.75"}`))
	}))
	defer srv.Close()

	source := NewHTTPRateSource(srv.URL, "test-upstream")
	rate, err := source.GetRate(context.Background(), TokenUSDT)
	if err != nil {
		t.Fatalf("GetRate() error = %v", err)
	}
	if !rate.Rate.Equal(decimal.RequireFromString("35.75")) {
		t.Errorf("Rate = %s, want 35.75", rate.Rate)
	}
	if rate.Source != "test-upstream" {
		t.Errorf("Source = %s, want test-upstream", rate.Source)
	}
}

func TestHTTPRateSourceGetRateUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewHTTPRateSource(srv.URL, "test-upstream")
	_, err := source.GetRate(context.Background(), TokenUSDT)
	if !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("GetRate() err = %v, want ErrRateUnavailable", err)
	}
}

func TestHTTPRateSourceGetRateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": "not-a-number"}`))
	}))
	defer srv.Close()

	source := NewHTTPRateSource(srv.URL, "test-upstream")
	_, err := source.GetRate(context.Background(), TokenUSDT)
	if !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("GetRate() err = %v, want ErrRateUnavailable", err)
	}
}
