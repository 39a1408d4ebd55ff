package synth

import (
	"math"
	"math/rand"
	"time"

	"SignalSmith/internal/domain/models"
)

const (
	minVolFraction = 0.03
	maxVolFraction = 0.08

	minPatternConfidence = 75.0
	maxPatternConfidence = 98.0
)

// Source is the random stream the synthesizer draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// NewSource returns a deterministic source for seed.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Option configures Synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// WithMomentumCorrelation restricts momentum draws to labels matching the sampled regime.
func WithMomentumCorrelation(enabled bool) Option {
	return func(s *Synthesizer) {
		s.correlateMomentum = enabled
	}
}

// Synthesizer turns a single price into a regime-consistent indicator bundle.
// It holds no mutable state and is safe for concurrent use as long as each caller owns its Source.
type Synthesizer struct {
	now               func() time.Time
	correlateMomentum bool
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize samples a regime uniformly and builds the bundle under it.
func (s *Synthesizer) Synthesize(price float64, src Source) (models.IndicatorBundle, error) {
	if err := checkPrice(price); err != nil {
		return models.IndicatorBundle{}, err
	}
	regime := models.Regimes[src.Intn(len(models.Regimes))]
	return s.build(price, regime, src), nil
}

// SynthesizeRegime builds the bundle under a caller-chosen regime.
func (s *Synthesizer) SynthesizeRegime(price float64, regime models.Regime, src Source) (models.IndicatorBundle, error) {
	if err := checkPrice(price); err != nil {
		return models.IndicatorBundle{}, err
	}
	if !regime.IsValid() {
		return models.IndicatorBundle{}, &models.InvalidInputError{Field: "regime", Reason: "must be one of Bullish, Bearish, Neutral"}
	}
	return s.build(price, regime, src), nil
}

// Generate seeds a fresh source and records the seed on the bundle for replay.
// An empty regime is sampled.
func (s *Synthesizer) Generate(price float64, seed int64, regime models.Regime) (models.IndicatorBundle, error) {
	var (
		b   models.IndicatorBundle
		err error
	)
	src := NewSource(seed)
	if regime == "" {
		b, err = s.Synthesize(price, src)
	} else {
		b, err = s.SynthesizeRegime(price, regime, src)
	}
	if err != nil {
		return models.IndicatorBundle{}, err
	}
	b.Seed = seed
	return b, nil
}

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &models.InvalidInputError{Field: "price", Reason: "must be a finite number"}
	}
	if price <= 0 {
		return &models.InvalidInputError{Field: "price", Reason: "must be greater than 0"}
	}
	return nil
}

func (s *Synthesizer) build(price float64, regime models.Regime, src Source) models.IndicatorBundle {
	r := ranges[regime]
	now := s.now()

	rsi := uniform(src, r.rsi)
	adx := uniform(src, r.adx)
	offset := uniform(src, r.offset)
	long := uniform(src, r.long)

	ema := price / offset
	vwap := price * uniform(src, [2]float64{0.995, 1.005})
	sar := ema * 1.02
	if regime == models.RegimeBullish {
		sar = ema * 0.98
	}

	vf := uniform(src, [2]float64{minVolFraction, maxVolFraction})
	boll := models.Bollinger{
		Upper: math.Max(price, ema) * (1 + vf),
		Lower: math.Min(price, ema) * (1 - vf),
	}
	support := price * (1 - vf*uniform(src, [2]float64{1.2, 1.8}))
	resistance := price * (1 + vf*uniform(src, [2]float64{1.2, 1.8}))

	return models.IndicatorBundle{
		Price:           price,
		Regime:          regime,
		RSI:             rsi,
		ADX:             adx,
		EMA:             ema,
		VWAP:            vwap,
		SAR:             sar,
		Bollinger:       boll,
		LongShortRatio:  long,
		Support:         support,
		Resistance:      resistance,
		VolatilityIndex: volatilityIndex(vf),
		Patterns:        drawPatterns(src, now),
		Momentum:        s.drawMomentum(src, regime),
		GeneratedAt:     now,
	}
}

func uniform(src Source, r [2]float64) float64 {
	return r[0] + src.Float64()*(r[1]-r[0])
}

// volatilityIndex maps the volatility fraction linearly onto [20,80].
func volatilityIndex(vf float64) float64 {
	return 20 + (vf-minVolFraction)/(maxVolFraction-minVolFraction)*60
}

func drawPatterns(src Source, ts time.Time) []models.Pattern {
	count := 1 + src.Intn(2)
	pool := make([]int, len(patternCatalog))
	for i := range pool {
		pool[i] = i
	}
	out := make([]models.Pattern, 0, count)
	for i := 0; i < count; i++ {
		j := src.Intn(len(pool))
		p := patternCatalog[pool[j]]
		pool = append(pool[:j], pool[j+1:]...)
		out = append(out, models.Pattern{
			Name:        p.name,
			Description: p.description,
			Confidence:  uniform(src, [2]float64{minPatternConfidence, maxPatternConfidence}),
			Timestamp:   ts,
		})
	}
	return out
}

func (s *Synthesizer) drawMomentum(src Source, regime models.Regime) models.Momentum {
	candidates := momentumCatalog
	if s.correlateMomentum {
		candidates = make([]momentumEntry, 0, 2)
		for _, m := range momentumCatalog {
			if m.bias == regime {
				candidates = append(candidates, m)
			}
		}
	}
	m := candidates[src.Intn(len(candidates))]
	return models.Momentum{Trend: m.trend, Analysis: m.analysis}
}
