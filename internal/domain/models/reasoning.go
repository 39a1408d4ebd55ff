package models

// ReasoningRequest is what the external reasoning service is given for one signal.
type ReasoningRequest struct {
	Symbol    string          `json:"symbol"`
	RiskLevel RiskRating      `json:"riskLevel"`
	Bundle    IndicatorBundle `json:"indicators"`
	News      []NewsItem      `json:"news"`
}
