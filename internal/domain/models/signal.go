package models

import "time"

// Direction is the recommended trade side.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// RiskRating is both the caller's risk tier and the rating attached to a signal.
type RiskRating string

const (
	RiskLow    RiskRating = "Low"
	RiskMedium RiskRating = "Medium"
	RiskHigh   RiskRating = "High"
)

// Disclaimer is attached verbatim to every signal.
const Disclaimer = "This analysis is generated from synthesized market data and automated reasoning. " +
	"It is for informational purposes only and is not financial advice. " +
	"Crypto assets are volatile and you may lose some or all of your capital."

// Proposal is what the external reasoning service returns for one bundle.
// Price levels are optional; a nil level means the service did not propose one.
type Proposal struct {
	Direction        Direction         `json:"direction" validate:"required,oneof=BUY SELL HOLD"`
	Confidence       string            `json:"confidence" validate:"required,percent"`
	RiskRating       RiskRating        `json:"riskRating,omitempty" validate:"omitempty,oneof=Low Medium High"`
	SentimentSummary string            `json:"sentimentSummary"`
	Interpretations  map[string]string `json:"interpretations,omitempty"`
	EntryLow         *float64          `json:"entryLow,omitempty" validate:"omitempty,gt=0"`
	EntryHigh        *float64          `json:"entryHigh,omitempty" validate:"omitempty,gt=0"`
	StopLoss         *float64          `json:"stopLoss,omitempty" validate:"omitempty,gt=0"`
	TakeProfit       *float64          `json:"takeProfit,omitempty" validate:"omitempty,gt=0"`
}

// Levels mirrors the signal's price strings as numbers.
type Levels struct {
	EntryLow   float64  `json:"entryLow"`
	EntryHigh  float64  `json:"entryHigh"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
}

// Signal is the final, ordering-checked recommendation handed to presentation.
type Signal struct {
	ID               string            `json:"id,omitempty"`
	Symbol           string            `json:"symbol,omitempty"`
	Price            float64           `json:"price"`
	Direction        Direction         `json:"direction"`
	EntryZone        string            `json:"entryZone"`
	StopLoss         string            `json:"stopLoss,omitempty"`
	TakeProfit       string            `json:"takeProfit,omitempty"`
	Confidence       string            `json:"confidence"`
	RiskRating       RiskRating        `json:"riskRating"`
	SentimentSummary string            `json:"sentimentSummary"`
	Disclaimer       string            `json:"disclaimer"`
	Levels           Levels            `json:"levels"`
	Interpretations  map[string]string `json:"interpretations,omitempty"`
	Corrections      []string          `json:"corrections,omitempty"`
	Regime           Regime            `json:"regime,omitempty"`
	Seed             int64             `json:"seed"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// HasTargets reports whether the signal carries stop and target levels.
func (s Signal) HasTargets() bool {
	return s.Direction == DirectionBuy || s.Direction == DirectionSell
}
