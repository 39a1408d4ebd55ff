package synth

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"SignalSmith/internal/domain/models"
)

// fixedSource returns the same fraction for every draw.
type fixedSource struct{ v float64 }

func (f fixedSource) Float64() float64 { return f.v }

func (f fixedSource) Intn(n int) int {
	i := int(f.v * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSynth(opts ...Option) *Synthesizer {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func checkInvariants(t *testing.T, b models.IndicatorBundle) {
	t.Helper()
	if b.Bollinger.Lower > math.Min(b.Price, b.EMA) {
		t.Fatalf("lower band %v above min(price, ema) %v", b.Bollinger.Lower, math.Min(b.Price, b.EMA))
	}
	if b.Bollinger.Upper < math.Max(b.Price, b.EMA) {
		t.Fatalf("upper band %v below max(price, ema) %v", b.Bollinger.Upper, math.Max(b.Price, b.EMA))
	}
	if !(b.Support < b.Price && b.Price < b.Resistance) {
		t.Fatalf("expected support < price < resistance, got %v %v %v", b.Support, b.Price, b.Resistance)
	}
	if b.LongShortRatio+b.ShortRatio() != 100 {
		t.Fatalf("long %v + short %v != 100", b.LongShortRatio, b.ShortRatio())
	}
	for name, v := range map[string]float64{"rsi": b.RSI, "adx": b.ADX, "longShort": b.LongShortRatio, "volatility": b.VolatilityIndex} {
		if v < 0 || v > 100 {
			t.Fatalf("%s out of [0,100]: %v", name, v)
		}
	}
	if b.EMA <= 0 || b.VWAP <= 0 || b.SAR <= 0 {
		t.Fatalf("expected positive averages, got ema=%v vwap=%v sar=%v", b.EMA, b.VWAP, b.SAR)
	}
	if n := len(b.Patterns); n < 1 || n > 2 {
		t.Fatalf("expected 1-2 patterns, got %d", n)
	}
	for _, p := range b.Patterns {
		if p.Confidence < minPatternConfidence || p.Confidence > maxPatternConfidence {
			t.Fatalf("pattern confidence out of range: %v", p.Confidence)
		}
	}
	if b.Momentum.Trend == "" || b.Momentum.Analysis == "" {
		t.Fatalf("expected momentum descriptor")
	}
}

func TestSynthesizeBullishScenario(t *testing.T) {
	s := newTestSynth()
	b, err := s.SynthesizeRegime(65000, models.RegimeBullish, fixedSource{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantEMA := 65000 / 1.03
	if math.Abs(b.EMA-wantEMA) > 1e-6 {
		t.Fatalf("ema = %v, want %v", b.EMA, wantEMA)
	}
	if math.Abs(b.EMA-63107) > 1 {
		t.Fatalf("ema = %v, want about 63107", b.EMA)
	}
	if b.Bollinger.Upper < 65000*1.05 {
		t.Fatalf("upper %v below %v", b.Bollinger.Upper, 65000*1.05)
	}
	if b.Bollinger.Lower > b.EMA*0.95 {
		t.Fatalf("lower %v above %v", b.Bollinger.Lower, b.EMA*0.95)
	}
	if b.SAR >= b.EMA {
		t.Fatalf("bullish sar %v should sit below ema %v", b.SAR, b.EMA)
	}
	if math.Abs(b.VolatilityIndex-50) > 1e-9 {
		t.Fatalf("volatility index = %v, want 50", b.VolatilityIndex)
	}
	checkInvariants(t, b)
}

func TestSynthesizeRejectsNonPositivePrice(t *testing.T) {
	s := newTestSynth()
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := s.Synthesize(price, fixedSource{0.5})
		var inv *models.InvalidInputError
		if !errors.As(err, &inv) {
			t.Fatalf("price %v: expected InvalidInputError, got %v", price, err)
		}
		if inv.Field != "price" {
			t.Fatalf("unexpected field %q", inv.Field)
		}
	}
}

func TestSynthesizeRegimeRejectsUnknownRegime(t *testing.T) {
	_, err := newTestSynth().SynthesizeRegime(100, models.Regime("Sideways"), fixedSource{0.5})
	var inv *models.InvalidInputError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestInvariantsHoldAtRangeEdges(t *testing.T) {
	s := newTestSynth()
	for _, regime := range models.Regimes {
		for _, v := range []float64{0, 0.25, 0.5, 0.999999} {
			b, err := s.SynthesizeRegime(42.5, regime, fixedSource{v})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			checkInvariants(t, b)
		}
	}
}

func TestInvariantsHoldForRandomDraws(t *testing.T) {
	s := newTestSynth()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		price := math.Pow(10, rng.Float64()*10-4)
		b, err := s.Synthesize(price, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkInvariants(t, b)
	}
}

func TestRegimeRangesRespected(t *testing.T) {
	s := newTestSynth()
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		b, err := s.Synthesize(1000, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := ranges[b.Regime]
		if b.RSI < r.rsi[0] || b.RSI > r.rsi[1] {
			t.Fatalf("%s rsi %v outside %v", b.Regime, b.RSI, r.rsi)
		}
		if b.ADX < r.adx[0] || b.ADX > r.adx[1] {
			t.Fatalf("%s adx %v outside %v", b.Regime, b.ADX, r.adx)
		}
		if b.LongShortRatio < r.long[0] || b.LongShortRatio > r.long[1] {
			t.Fatalf("%s long ratio %v outside %v", b.Regime, b.LongShortRatio, r.long)
		}
		if b.Regime == models.RegimeBullish && b.SAR >= b.EMA {
			t.Fatalf("bullish sar above ema")
		}
		if b.Regime != models.RegimeBullish && b.SAR <= b.EMA {
			t.Fatalf("%s sar below ema", b.Regime)
		}
	}
}

func TestRegimeSamplingCoversAllRegimes(t *testing.T) {
	s := newTestSynth()
	rng := rand.New(rand.NewSource(3))
	seen := map[models.Regime]int{}
	for i := 0; i < 300; i++ {
		b, err := s.Synthesize(10, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[b.Regime]++
	}
	for _, r := range models.Regimes {
		if seen[r] == 0 {
			t.Fatalf("regime %s never sampled: %v", r, seen)
		}
	}
}

func TestPatternsDrawnWithoutReplacement(t *testing.T) {
	s := newTestSynth()
	b, err := s.SynthesizeRegime(100, models.RegimeNeutral, fixedSource{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(b.Patterns))
	}
	// pool index 5 first, then index 4 of the remaining nine.
	if b.Patterns[0].Name != patternCatalog[5].name || b.Patterns[1].Name != patternCatalog[4].name {
		t.Fatalf("unexpected draw order: %s, %s", b.Patterns[0].Name, b.Patterns[1].Name)
	}
	for _, p := range b.Patterns {
		if !p.Timestamp.Equal(fixedNow) {
			t.Fatalf("expected generation timestamp, got %v", p.Timestamp)
		}
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	s := newTestSynth()
	a, err := s.Generate(3000, 42, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := s.Generate(3000, 42, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different bundles")
	}
	if a.Seed != 42 {
		t.Fatalf("expected seed recorded, got %d", a.Seed)
	}
	c, err := s.Generate(3000, 43, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(a, c) {
		t.Fatalf("different seeds produced identical bundles")
	}
}

func TestMomentumCorrelationOptIn(t *testing.T) {
	s := newTestSynth(WithMomentumCorrelation(true))
	rng := rand.New(rand.NewSource(5))
	byTrend := map[string]models.Regime{}
	for _, m := range momentumCatalog {
		byTrend[m.trend] = m.bias
	}
	for i := 0; i < 200; i++ {
		b, err := s.Synthesize(250, rng)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if byTrend[b.Momentum.Trend] != b.Regime {
			t.Fatalf("momentum %q does not match regime %s", b.Momentum.Trend, b.Regime)
		}
	}
}

func TestBundleJSONCarriesShortRatio(t *testing.T) {
	b, err := newTestSynth().SynthesizeRegime(100, models.RegimeBearish, fixedSource{0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["shortRatio"].(float64) != b.ShortRatio() {
		t.Fatalf("unexpected shortRatio %v", m["shortRatio"])
	}
	if m["regime"] != "Bearish" {
		t.Fatalf("unexpected regime %v", m["regime"])
	}
}
