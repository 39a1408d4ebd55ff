package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"SignalSmith/internal/domain/models"
	"SignalSmith/pkg/cache"
	xhttp "SignalSmith/pkg/http"
	applogger "SignalSmith/pkg/logger"
)

func newBase(srv *httptest.Server) *HTTPServiceBase {
	return NewHTTPServiceBase(srv.URL, time.Second,
		WithClient(xhttp.NewClient(xhttp.WithHTTPClient(srv.Client()))),
		WithMaxElapsed(2*time.Second),
	)
}

func TestPriceClientFetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("unexpected ids %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{"bitcoin": {"usd": 65000}})
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()
	pc := NewPriceClient(newBase(srv), "usd", mc, time.Minute, applogger.Nop())

	for i := 0; i < 2; i++ {
		q, err := pc.Price(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Price != 65000 || q.Symbol != "bitcoin" {
			t.Fatalf("unexpected quote %+v", q)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
}

func TestPriceClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3000}}`))
	}))
	defer srv.Close()

	pc := NewPriceClient(newBase(srv), "usd", nil, 0, applogger.Nop())
	q, err := pc.Price(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 3000 {
		t.Fatalf("unexpected price %v", q.Price)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected a retry, got %d calls", n)
	}
}

func TestPriceClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	pc := NewPriceClient(newBase(srv), "usd", nil, 0, applogger.Nop())
	_, err := pc.Price(context.Background(), "nosuchcoin")
	var se *xhttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected no retry, got %d calls", n)
	}
}

func TestPriceClientRejectsMissingQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	pc := NewPriceClient(newBase(srv), "usd", nil, 0, applogger.Nop())
	if _, err := pc.Price(context.Background(), "bitcoin"); err == nil {
		t.Fatalf("expected error for empty response")
	}
	var inv *models.InvalidInputError
	if _, err := pc.Price(context.Background(), "  "); !errors.As(err, &inv) {
		t.Fatalf("expected InvalidInputError for blank symbol, got %v", err)
	}
}

func TestNewsClientBoundsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		if got := r.URL.Query().Get("pageSize"); got != "2" {
			t.Errorf("unexpected pageSize %q", got)
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"a","description":"d1","url":"https://x/a","source":{"name":"X"},"publishedAt":"2025-01-01T00:00:00Z"},
			{"title":"","url":"https://x/skip"},
			{"title":"b","description":"d2","url":"https://x/b","publishedAt":"2025-01-01T00:00:00Z"},
			{"title":"c","description":"d3","url":"https://x/c","publishedAt":"2025-01-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	nc := NewNewsClient(newBase(srv), "key", 2, nil, 0, applogger.Nop())
	items, err := nc.Headlines(context.Background(), "btc", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "a" || items[1].Title != "b" || items[0].Source != "X" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestNewsClientWithoutKeyReturnsNothing(t *testing.T) {
	nc := NewNewsClient(NewHTTPServiceBase("http://unused", time.Second), "", 5, nil, 0, applogger.Nop())
	items, err := nc.Headlines(context.Background(), "bitcoin", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}
