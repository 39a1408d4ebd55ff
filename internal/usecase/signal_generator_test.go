package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalSmith/internal/domain/models"
	"SignalSmith/internal/repository"
	"SignalSmith/internal/services/composer"
	"SignalSmith/internal/services/synth"
	applogger "SignalSmith/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *nopMetrics) RecordSignal(string, string)     {}
func (m *nopMetrics) RecordCorrections(string, int)   {}
func (m *nopMetrics) RecordRegime(string)             {}
func (m *nopMetrics) RecordLastPrice(string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64)   {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

type fakePrices struct {
	price float64
	err   error
	asked []string
}

func (f *fakePrices) Price(_ context.Context, symbol string) (models.Quote, error) {
	f.asked = append(f.asked, symbol)
	if f.err != nil {
		return models.Quote{}, f.err
	}
	return models.Quote{Symbol: symbol, Price: f.price, Timestamp: time.Now()}, nil
}

type fakeNews struct {
	items []models.NewsItem
	err   error
}

func (f *fakeNews) Headlines(context.Context, string, int) ([]models.NewsItem, error) {
	return f.items, f.err
}

type fakeReasoner struct {
	proposal models.Proposal
	err      error
	seen     []models.ReasoningRequest
}

func (f *fakeReasoner) Name() string { return "fake" }

func (f *fakeReasoner) Reason(_ context.Context, req models.ReasoningRequest) (models.Proposal, error) {
	f.seen = append(f.seen, req)
	return f.proposal, f.err
}

type captureBroadcaster struct{ got []models.Signal }

func (c *captureBroadcaster) Broadcast(s models.Signal) { c.got = append(c.got, s) }

type captureNotifier struct {
	mu  sync.Mutex
	got []models.Signal
}

func (c *captureNotifier) Notify(_ context.Context, s models.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
	return nil
}

type fixture struct {
	gen      *SignalGenerator
	prices   *fakePrices
	news     *fakeNews
	reasoner *fakeReasoner
	journal  *repository.MemoryJournal
	metrics  *nopMetrics
	bc       *captureBroadcaster
	notifier *captureNotifier
}

func newFixture(opts ...GeneratorOption) *fixture {
	f := &fixture{
		prices:   &fakePrices{price: 65000},
		news:     &fakeNews{items: []models.NewsItem{{Title: "BTC rallies", URL: "https://example.com/1"}}},
		reasoner: &fakeReasoner{proposal: models.Proposal{Direction: models.DirectionBuy, Confidence: "70%"}},
		journal:  repository.NewMemoryJournal(10),
		metrics:  &nopMetrics{},
		bc:       &captureBroadcaster{},
		notifier: &captureNotifier{},
	}
	f.gen = NewSignalGenerator(
		synth.New(),
		composer.New(applogger.Nop()),
		Collaborators{
			Prices:    f.prices,
			News:      f.news,
			Reasoner:  f.reasoner,
			Journal:   f.journal,
			Publisher: repository.NopPublisher{},
			Metrics:   f.metrics,
		},
		applogger.Nop(),
		append([]GeneratorOption{
			WithBroadcaster(f.bc),
			WithNotifier(f.notifier),
			WithRequestTimeout(time.Second),
		}, opts...)...,
	)
	return f
}

func TestGenerateRunsPipeline(t *testing.T) {
	f := newFixture()
	seed := int64(42)

	sig, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "BTC", RiskLevel: models.RiskMedium, Seed: &seed})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sig.Symbol != "bitcoin" || sig.ID == "" || sig.Seed != 42 || sig.Direction != models.DirectionBuy {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if len(f.prices.asked) != 1 || f.prices.asked[0] != "bitcoin" {
		t.Fatalf("ticker not normalized: %v", f.prices.asked)
	}
	if !(*sig.Levels.StopLoss < sig.Levels.EntryLow && sig.Levels.EntryHigh < *sig.Levels.TakeProfit) {
		t.Fatalf("BUY ordering broken: %+v", sig.Levels)
	}
	if len(f.reasoner.seen) != 1 || len(f.reasoner.seen[0].News) != 1 || f.reasoner.seen[0].Bundle.Price != 65000 {
		t.Fatalf("reasoner got %+v", f.reasoner.seen)
	}
	if len(f.bc.got) != 1 {
		t.Fatalf("signal not broadcast")
	}
	if err := f.gen.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(f.notifier.got) != 1 {
		t.Fatalf("signal not notified")
	}

	hist, _, _, err := f.gen.History(context.Background(), models.HistoryRequest{Symbol: "btc", Limit: 10})
	if err != nil || len(hist) != 1 || hist[0].ID != sig.ID {
		t.Fatalf("history = %+v, %v", hist, err)
	}
}

func TestGenerateUsesCallerPrice(t *testing.T) {
	f := newFixture()
	sig, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "ethereum", Price: 3000, RiskLevel: models.RiskLow})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(f.prices.asked) != 0 || sig.Price != 3000 {
		t.Fatalf("price feed should be skipped, asked=%v price=%v", f.prices.asked, sig.Price)
	}
}

func TestGenerateSeedReproducesBundle(t *testing.T) {
	f := newFixture()
	seed := int64(7)
	for i := 0; i < 2; i++ {
		if _, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskHigh, Seed: &seed}); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	a, b := f.reasoner.seen[0].Bundle, f.reasoner.seen[1].Bundle
	if a.Regime != b.Regime || a.RSI != b.RSI || a.Support != b.Support || a.Patterns[0].Name != b.Patterns[0].Name {
		t.Fatalf("same seed produced different bundles:\n%+v\n%+v", a, b)
	}
}

func TestGenerateDrawsSeedWhenUnset(t *testing.T) {
	f := newFixture(WithSeedSource(func() int64 { return 99 }))
	seed := int64(99)
	if _, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskLow}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskLow, Seed: &seed}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	a, b := f.reasoner.seen[0].Bundle, f.reasoner.seen[1].Bundle
	if a.Regime != b.Regime || a.RSI != b.RSI || a.Resistance != b.Resistance {
		t.Fatalf("drawn seed 99 and explicit seed 99 differ:\n%+v\n%+v", a, b)
	}
}

func TestHistoryWindowEndsAtNow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(WithNow(func() time.Time { return now }), WithHistoryLookback(6*time.Hour))

	_, from, to, err := f.gen.History(context.Background(), models.HistoryRequest{Symbol: "btc", Limit: 5})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !to.Equal(now) || !from.Equal(now.Add(-6*time.Hour)) {
		t.Fatalf("window = %v..%v, want %v..%v", from, to, now.Add(-6*time.Hour), now)
	}

	_, from, to, _ = f.gen.History(context.Background(), models.HistoryRequest{Symbol: "btc", From: "2025-03-01T11:00:00Z", Limit: 5})
	if !to.Equal(now) || from.Hour() != 11 {
		t.Fatalf("explicit from ignored: %v..%v", from, to)
	}
}

func TestGeneratePriceFailureIsUpstream(t *testing.T) {
	f := newFixture()
	f.prices.err = errors.New("connection refused")

	_, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskMedium})
	var up *models.UpstreamError
	if !errors.As(err, &up) || up.Service != "market data" {
		t.Fatalf("expected market data upstream error, got %v", err)
	}
	if len(f.reasoner.seen) != 0 {
		t.Fatalf("reasoner must not be called without a price")
	}
}

func TestGenerateNewsFailureDegrades(t *testing.T) {
	f := newFixture()
	f.news.err = errors.New("quota exceeded")

	if _, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskMedium}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(f.reasoner.seen[0].News) != 0 {
		t.Fatalf("expected no headlines")
	}
	if f.metrics.errors["news_feed"] != 1 {
		t.Fatalf("news failure not recorded: %v", f.metrics.errors)
	}
}

func TestGenerateReasoningFailureIsUpstream(t *testing.T) {
	f := newFixture()
	f.reasoner.err = errors.New("503")

	_, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskMedium})
	var up *models.UpstreamError
	if !errors.As(err, &up) || up.Service != "reasoning service" {
		t.Fatalf("expected reasoning upstream error, got %v", err)
	}
}

func TestGenerateRejectedProposalNotJournaled(t *testing.T) {
	f := newFixture()
	f.reasoner.proposal = models.Proposal{Direction: "STRONG BUY", Confidence: "70%"}

	_, err := f.gen.Generate(context.Background(), models.SignalRequest{Symbol: "bitcoin", RiskLevel: models.RiskMedium})
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "direction" {
		t.Fatalf("expected direction validation error, got %v", err)
	}
	hist, _, _, _ := f.gen.History(context.Background(), models.HistoryRequest{Symbol: "bitcoin", Limit: 10})
	if len(hist) != 0 || len(f.bc.got) != 0 {
		t.Fatalf("rejected proposal must not be delivered")
	}
}

func TestIndicatorsHonorsRegime(t *testing.T) {
	f := newFixture()
	seed := int64(1)
	b, err := f.gen.Indicators(context.Background(), models.IndicatorsRequest{Price: 100, Seed: &seed, Regime: models.RegimeBearish})
	if err != nil {
		t.Fatalf("Indicators: %v", err)
	}
	if b.Regime != models.RegimeBearish || b.Seed != 1 {
		t.Fatalf("unexpected bundle %+v", b)
	}
	_, err = f.gen.Indicators(context.Background(), models.IndicatorsRequest{Price: -1})
	var ie *models.InvalidInputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestComposeDoesNotDeliver(t *testing.T) {
	f := newFixture()
	sl := 66000.0
	sig, err := f.gen.Compose(context.Background(), models.ComposeRequest{
		Symbol:     "bitcoin",
		Direction:  models.DirectionSell,
		Bundle:     models.IndicatorBundle{Price: 65000, Support: 62000, Resistance: 67000},
		RiskLevel:  models.RiskMedium,
		Confidence: "55%",
		StopLoss:   &sl,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if sig.Direction != models.DirectionSell || len(f.bc.got) != 0 {
		t.Fatalf("compose should return without delivery")
	}
}

func TestRequestsHandler(t *testing.T) {
	f := newFixture()
	h := NewSignalRequestsHandler("signal-requests", f.gen, f.metrics, applogger.Nop())

	if err := h.Handle(context.Background(), []byte(`{"symbol":"eth","price":3000}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	hist, _, _, _ := f.gen.History(context.Background(), models.HistoryRequest{Symbol: "ethereum", Limit: 10})
	if len(hist) != 1 || hist[0].RiskRating == "" {
		t.Fatalf("request not served with defaults: %+v", hist)
	}

	var perm *backoff.PermanentError
	if err := h.Handle(context.Background(), []byte(`{not json`)); !errors.As(err, &perm) {
		t.Fatalf("bad json must be permanent, got %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"symbol":"btc","riskLevel":"Extreme"}`)); !errors.As(err, &perm) {
		t.Fatalf("invalid risk level must be permanent, got %v", err)
	}

	f.prices.err = errors.New("timeout")
	err := h.Handle(context.Background(), []byte(`{"symbol":"btc"}`))
	if err == nil || errors.As(err, &perm) {
		t.Fatalf("upstream failure must be retryable, got %v", err)
	}
}
