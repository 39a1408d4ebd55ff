package reasoning

import (
	"context"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	applogger "SignalSmith/pkg/logger"
)

// NoopReasoner is the fallback used when no language model is configured. It always proposes HOLD.
type NoopReasoner struct {
	log *applogger.Logger
}

func NewNoopReasoner(log *applogger.Logger) *NoopReasoner {
	return &NoopReasoner{log: log}
}

func (n *NoopReasoner) Name() string { return "noop" }

func (n *NoopReasoner) Reason(_ context.Context, req models.ReasoningRequest) (models.Proposal, error) {
	n.log.Debug("noop reasoner called, proposing HOLD", applogger.String("symbol", req.Symbol))
	return models.Proposal{
		Direction:        models.DirectionHold,
		Confidence:       "0%",
		RiskRating:       req.RiskLevel,
		SentimentSummary: "No reasoning service configured; watching the support/resistance range.",
		Interpretations: map[string]string{
			"regime": string(req.Bundle.Regime),
		},
	}, nil
}

var _ domsvc.Reasoner = (*NoopReasoner)(nil)
