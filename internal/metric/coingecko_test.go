package metric

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBTCPriceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("ids = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"bitcoin": {"usd": 97123.5},
		})
	}))
	defer server.Close()

	s := &BTCPrice{gecko: newCoinGeckoClient(server.URL), logger: discardLogger()}

	v, ok := s.FetchValue(context.Background())
	if !ok {
		t.Fatal("expected a value")
	}
	if v != 97123.5 {
		t.Errorf("value = %v", v)
	}
}

func TestPriceFetchFailsGracefully(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		},
		"missing coin": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]map[string]float64{})
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			s := &ETHPrice{gecko: newCoinGeckoClient(server.URL), logger: discardLogger()}
			if _, ok := s.FetchValue(context.Background()); ok {
				t.Error("fetch should report no value, never panic or error")
			}
		})
	}
}

func TestBTCDominance(t *testing.T) {
	cases := []struct {
		name   string
		shares map[string]float64
		want   float64
	}{
		{"btc leads", map[string]float64{"btc": 52.1, "eth": 17.3, "usdt": 5.0}, 1},
		{"eth leads", map[string]float64{"btc": 30.0, "eth": 41.2}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var out globalData
				out.Data.MarketCapPercentage = tc.shares
				json.NewEncoder(w).Encode(out)
			}))
			defer server.Close()

			s := &BTCDominance{gecko: newCoinGeckoClient(server.URL), logger: discardLogger()}
			v, ok := s.FetchValue(context.Background())
			if !ok {
				t.Fatal("expected a value")
			}
			if v != tc.want {
				t.Errorf("value = %v, want %v", v, tc.want)
			}
		})
	}
}

func TestFearGreedFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"value":"71"}]}`))
	}))
	defer server.Close()

	s := NewFearGreed(server.URL, discardLogger())

	v, ok := s.FetchValue(context.Background())
	if !ok {
		t.Fatal("expected a value")
	}
	if v != 71 {
		t.Errorf("value = %v, want 71", v)
	}
}

func TestETHStakingRateFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ethstore/latest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"apr":0.0312}}`))
	}))
	defer server.Close()

	s := NewETHStakingRate(server.URL, discardLogger())

	v, ok := s.FetchValue(context.Background())
	if !ok {
		t.Fatal("expected a value")
	}
	if v < 3.11 || v > 3.13 {
		t.Errorf("apr percent = %v, want ~3.12", v)
	}
}
