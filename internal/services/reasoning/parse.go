package reasoning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"SignalSmith/internal/domain/models"
	"SignalSmith/pkg/util"
)

// flexFloat accepts 65000, "65000" and "65,000.50".
type flexFloat struct {
	v   float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := util.ParsePrice(s)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.v
	return &v
}

// flexPercent accepts "78%", "78" and 78.
type flexPercent string

func (p *flexPercent) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if s != "" && !strings.HasSuffix(s, "%") {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			s = util.FormatPercent(v)
		}
	}
	*p = flexPercent(s)
	return nil
}

type rawProposal struct {
	Direction        string            `json:"direction"`
	Confidence       flexPercent       `json:"confidence"`
	RiskRating       string            `json:"riskRating"`
	SentimentSummary string            `json:"sentimentSummary"`
	Interpretations  map[string]string `json:"interpretations"`
	EntryLow         flexFloat         `json:"entryLow"`
	EntryHigh        flexFloat         `json:"entryHigh"`
	StopLoss         flexFloat         `json:"stopLoss"`
	TakeProfit       flexFloat         `json:"takeProfit"`
}

// ParseProposal decodes a model answer into a Proposal. Enum casing is normalized;
// format validation is left to the composer.
func ParseProposal(content string) (models.Proposal, error) {
	body := stripFences(content)
	var raw rawProposal
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return models.Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	return models.Proposal{
		Direction:        models.Direction(strings.ToUpper(strings.TrimSpace(raw.Direction))),
		Confidence:       string(raw.Confidence),
		RiskRating:       models.RiskRating(titleCase(raw.RiskRating)),
		SentimentSummary: strings.TrimSpace(raw.SentimentSummary),
		Interpretations:  raw.Interpretations,
		EntryLow:         raw.EntryLow.ptr(),
		EntryHigh:        raw.EntryHigh.ptr(),
		StopLoss:         raw.StopLoss.ptr(),
		TakeProfit:       raw.TakeProfit.ptr(),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return s
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
