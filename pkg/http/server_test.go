package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "SignalSmith/pkg/logger"

	"github.com/labstack/echo/v4"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ping", func(c echo.Context) error {
		return SuccessResponse(c, "pong")
	})
}

type denyAll struct{ calls int }

func (d *denyAll) Allow(string) bool {
	d.calls++
	return false
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRoutesAndRateLimitSkips(t *testing.T) {
	limiter := &denyAll{}
	s := NewServer(applogger.Nop(), []Handler{pingHandler{}, nil},
		WithMetricsPath("/metrics"),
		WithRateLimiter(limiter),
	)

	if rec := serve(s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if rec := serve(s, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if limiter.calls != 0 {
		t.Fatalf("limiter consulted %d times for skipped paths", limiter.calls)
	}
	if rec := serve(s, "/api/ping"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("limited route status = %d, want 429", rec.Code)
	}
}

func TestServerWithoutLimiterOrMetrics(t *testing.T) {
	s := NewServer(applogger.Nop(), []Handler{pingHandler{}}, WithMetricsPath(""))

	if rec := serve(s, "/api/ping"); rec.Code != http.StatusOK {
		t.Fatalf("ping status = %d", rec.Code)
	}
	if rec := serve(s, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics should be unmounted, got %d", rec.Code)
	}
}
