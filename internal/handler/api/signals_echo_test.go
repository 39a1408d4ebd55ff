package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalSmith/internal/domain/models"
	"SignalSmith/internal/repository"
	"SignalSmith/internal/services/composer"
	"SignalSmith/internal/services/reasoning"
	"SignalSmith/internal/services/synth"
	"SignalSmith/internal/usecase"
	xhttp "SignalSmith/pkg/http"
	xlogger "SignalSmith/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubMetrics struct{}

func (stubMetrics) RecordSignal(string, string)     {}
func (stubMetrics) RecordCorrections(string, int)   {}
func (stubMetrics) RecordRegime(string)             {}
func (stubMetrics) RecordError(string)              {}
func (stubMetrics) RecordLastPrice(string, float64) {}
func (stubMetrics) RecordLatency(string, float64)   {}

type stubPrices struct{ err error }

func (s stubPrices) Price(_ context.Context, symbol string) (models.Quote, error) {
	if s.err != nil {
		return models.Quote{}, s.err
	}
	return models.Quote{Symbol: symbol, Price: 65000, Timestamp: time.Now()}, nil
}

type stubNews struct{}

func (stubNews) Headlines(context.Context, string, int) ([]models.NewsItem, error) { return nil, nil }

func newTestEcho(pricesErr error) *echo.Echo {
	gen := usecase.NewSignalGenerator(
		synth.New(),
		composer.New(xlogger.Nop()),
		usecase.Collaborators{
			Prices:    stubPrices{err: pricesErr},
			News:      stubNews{},
			Reasoner:  reasoning.NewNoopReasoner(xlogger.Nop()),
			Journal:   repository.NewMemoryJournal(16),
			Publisher: repository.NopPublisher{},
			Metrics:   stubMetrics{},
		},
		xlogger.Nop(),
	)
	e := echo.New()
	NewSignalsEchoHandler(xlogger.Nop(), gen).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Status int `json:"status"`
	Data   T   `json:"data"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env
}

func TestIndicatorsEndpoint(t *testing.T) {
	e := newTestEcho(nil)
	rec := do(e, http.MethodPost, "/api/indicators", `{"price":65000,"seed":3,"regime":"Bullish"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	env := decode[map[string]interface{}](t, rec)
	if env.Data["regime"] != "Bullish" || env.Data["seed"].(float64) != 3 {
		t.Fatalf("unexpected bundle %v", env.Data)
	}
	if _, ok := env.Data["rsi"]; !ok || env.Data["shortRatio"] == nil {
		t.Fatalf("bundle incomplete %v", env.Data)
	}
}

func TestIndicatorsRejectsBadPrice(t *testing.T) {
	e := newTestEcho(nil)
	rec := do(e, http.MethodPost, "/api/indicators", `{"price":-5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decode[[]xhttp.ValidationError](t, rec)
	if len(env.Data) != 1 || env.Data[0].Field != "price" {
		t.Fatalf("unexpected errors %+v", env.Data)
	}
}

func TestSignalsEndpointHoldsWithNoopReasoner(t *testing.T) {
	e := newTestEcho(nil)
	rec := do(e, http.MethodPost, "/api/signals", `{"symbol":"btc","riskLevel":"Low"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	env := decode[map[string]interface{}](t, rec)
	if env.Data["direction"] != "HOLD" || env.Data["confidence"] != "0%" || env.Data["symbol"] != "bitcoin" {
		t.Fatalf("unexpected signal %v", env.Data)
	}
	if _, ok := env.Data["stopLoss"]; ok {
		t.Fatalf("HOLD must not carry stopLoss")
	}

	rec = do(e, http.MethodGet, "/api/signals/history?symbol=bitcoin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status %d: %s", rec.Code, rec.Body.String())
	}
	hist := decode[xhttp.RangeListResponse](t, rec)
	if hist.Data.Total != 1 {
		t.Fatalf("expected one journaled signal, got %+v", hist.Data)
	}
}

func TestSignalsEndpointUpstreamFailure(t *testing.T) {
	e := newTestEcho(errors.New("dial tcp: refused"))
	rec := do(e, http.MethodPost, "/api/signals", `{"symbol":"bitcoin"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode[[]*xhttp.AppError](t, rec)
	if env.Data[0].Code != "ERR_UPSTREAM" || !strings.Contains(env.Data[0].Message, "try again") {
		t.Fatalf("unexpected error %+v", env.Data[0])
	}
}

func TestComposeEndpointCorrectsSellStop(t *testing.T) {
	e := newTestEcho(nil)
	body := `{"symbol":"ethereum","direction":"SELL","riskLevel":"Medium","confidence":"72%",
		"bundle":{"price":3000,"support":2850,"resistance":3100},
		"entryLow":2980,"entryHigh":3020,"stopLoss":2990,"takeProfit":2850}`
	rec := do(e, http.MethodPost, "/api/signals/compose", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	env := decode[models.Signal](t, rec)
	if env.Data.StopLoss != "3,023.00" || env.Data.EntryZone != "2,980.00 - 3,020.00" || len(env.Data.Corrections) != 1 {
		t.Fatalf("unexpected signal %+v", env.Data)
	}
}

func TestComposeEndpointErrorMapping(t *testing.T) {
	e := newTestEcho(nil)
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad confidence", `{"direction":"BUY","confidence":"lots","bundle":{"price":100,"support":95,"resistance":105}}`, 422, "ERR_VALIDATION"},
		{"bad direction", `{"direction":"UP","confidence":"50%","bundle":{"price":100,"support":95,"resistance":105}}`, 422, "ERR_VALIDATION"},
		{"inverted zone", `{"direction":"BUY","confidence":"50%","entryLow":101,"entryHigh":99,"bundle":{"price":100,"support":95,"resistance":105}}`, 422, "ERR_INCONSISTENT_DIRECTION"},
		{"zero price", `{"direction":"HOLD","confidence":"50%","bundle":{"price":0}}`, 400, "ERR_INVALID_INPUT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/signals/compose", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			env := decode[[]*xhttp.AppError](t, rec)
			if len(env.Data) != 1 || env.Data[0].Code != tc.code {
				t.Fatalf("expected %s, got %+v", tc.code, env.Data)
			}
		})
	}
}

func TestHistoryRequiresSymbol(t *testing.T) {
	e := newTestEcho(nil)
	rec := do(e, http.MethodGet, "/api/signals/history", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMapErrorTimeout(t *testing.T) {
	appErr := MapError(context.DeadlineExceeded)
	if appErr.Status != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", appErr.Status)
	}
	if MapError(errors.New("boom")).Status != http.StatusInternalServerError {
		t.Fatalf("unknown errors map to 500")
	}
}
