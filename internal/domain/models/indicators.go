package models

import (
	"encoding/json"
	"time"
)

// Regime is the sampled market state that correlates every synthesized indicator.
type Regime string

const (
	RegimeBullish Regime = "Bullish"
	RegimeBearish Regime = "Bearish"
	RegimeNeutral Regime = "Neutral"
)

// Regimes lists every regime in sampling order.
var Regimes = []Regime{RegimeBullish, RegimeBearish, RegimeNeutral}

// IsValid reports whether r is one of the known regimes.
func (r Regime) IsValid() bool {
	switch r {
	case RegimeBullish, RegimeBearish, RegimeNeutral:
		return true
	default:
		return false
	}
}

type Bollinger struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

type Momentum struct {
	Trend    string `json:"trend"`
	Analysis string `json:"analysis"`
}

// Pattern is a named candlestick pattern attached to a bundle.
type Pattern struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// IndicatorBundle is the complete set of synthesized technical values for one price snapshot.
// A bundle is never mutated after the synthesizer returns it.
type IndicatorBundle struct {
	Price           float64   `json:"price"`
	Regime          Regime    `json:"regime"`
	RSI             float64   `json:"rsi"`
	ADX             float64   `json:"adx"`
	EMA             float64   `json:"ema"`
	VWAP            float64   `json:"vwap"`
	SAR             float64   `json:"sar"`
	Bollinger       Bollinger `json:"bollinger"`
	LongShortRatio  float64   `json:"longShortRatio"`
	Support         float64   `json:"support"`
	Resistance      float64   `json:"resistance"`
	VolatilityIndex float64   `json:"volatilityIndex"`
	Momentum        Momentum  `json:"momentum"`
	Patterns        []Pattern `json:"patterns"`
	Seed            int64     `json:"seed"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// ShortRatio is the short share in percent. It is derived from LongShortRatio, never sampled.
func (b IndicatorBundle) ShortRatio() float64 {
	return 100 - b.LongShortRatio
}

// MarshalJSON adds the derived shortRatio to the flat record.
func (b IndicatorBundle) MarshalJSON() ([]byte, error) {
	type plain IndicatorBundle
	return json.Marshal(struct {
		plain
		ShortRatio float64 `json:"shortRatio"`
	}{plain: plain(b), ShortRatio: b.ShortRatio()})
}
