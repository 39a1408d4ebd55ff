package models

// Requests for the signal HTTP endpoints and the kafka request stream.
// Defined in domain so the handler and the consumer share one contract.

type IndicatorsRequest struct {
	Price  float64 `json:"price" validate:"required,gt=0"`
	Seed   *int64  `json:"seed,omitempty"`
	Regime Regime  `json:"regime,omitempty" validate:"omitempty,oneof=Bullish Bearish Neutral"`
}

type SignalRequest struct {
	Symbol    string     `json:"symbol" default:"bitcoin" validate:"required,max=64"`
	Price     float64    `json:"price,omitempty" validate:"omitempty,gt=0"`
	RiskLevel RiskRating `json:"riskLevel" default:"Medium" validate:"oneof=Low Medium High"`
	Seed      *int64     `json:"seed,omitempty"`
}

// ComposeRequest runs only the composer for callers that did their own reasoning.
// Direction, confidence and levels are checked by the composer, not at binding time,
// so a malformed proposal is reported as a validation failure of the signal.
type ComposeRequest struct {
	Symbol          string            `json:"symbol,omitempty" validate:"max=64"`
	Direction       Direction         `json:"direction"`
	Bundle          IndicatorBundle   `json:"bundle"`
	RiskLevel       RiskRating        `json:"riskLevel" default:"Medium"`
	Confidence      string            `json:"confidence"`
	RiskRating      RiskRating        `json:"riskRating,omitempty"`
	Sentiment       string            `json:"sentiment"`
	Interpretations map[string]string `json:"interpretations,omitempty"`
	EntryLow        *float64          `json:"entryLow,omitempty"`
	EntryHigh       *float64          `json:"entryHigh,omitempty"`
	StopLoss        *float64          `json:"stopLoss,omitempty"`
	TakeProfit      *float64          `json:"takeProfit,omitempty"`
}

// Proposal converts the request into the reasoning contract the composer consumes.
func (r ComposeRequest) Proposal() Proposal {
	return Proposal{
		Direction:        r.Direction,
		Confidence:       r.Confidence,
		RiskRating:       r.RiskRating,
		SentimentSummary: r.Sentiment,
		Interpretations:  r.Interpretations,
		EntryLow:         r.EntryLow,
		EntryHigh:        r.EntryHigh,
		StopLoss:         r.StopLoss,
		TakeProfit:       r.TakeProfit,
	}
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
