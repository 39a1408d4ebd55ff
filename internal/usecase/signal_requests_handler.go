package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalSmith/internal/domain/models"
	domrepo "SignalSmith/internal/domain/repository"
	pkghttp "SignalSmith/pkg/http"
	pkgkafka "SignalSmith/pkg/kafka"
	applogger "SignalSmith/pkg/logger"
)

// SignalRunner is the part of SignalGenerator the request stream needs.
type SignalRunner interface {
	Generate(ctx context.Context, req models.SignalRequest) (models.Signal, error)
}

// SignalRequestsHandler consumes SignalRequest messages and runs the pipeline for each.
// Results leave through the generator's publisher, so the handler itself only reports errors.
type SignalRequestsHandler struct {
	topic   string
	runner  SignalRunner
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewSignalRequestsHandler(topic string, runner SignalRunner, metrics domrepo.Metrics, log *applogger.Logger) *SignalRequestsHandler {
	return &SignalRequestsHandler{topic: topic, runner: runner, metrics: metrics, log: log}
}

func (h *SignalRequestsHandler) Topic() string { return h.topic }

// Handle decodes one request. Bad payloads and rejected proposals are permanent;
// upstream failures are returned for retry.
func (h *SignalRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.SignalRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode signal request: %w", err))
	}
	if verrs := pkghttp.ValidateStruct(ctx, &req); len(verrs) > 0 {
		h.metrics.RecordError("consumer_validation")
		return pkgkafka.Permanent(fmt.Errorf("invalid signal request: %s", verrs[0].Message))
	}

	sig, err := h.runner.Generate(ctx, req)
	if err != nil {
		var up *models.UpstreamError
		if errors.As(err, &up) {
			return err
		}
		return pkgkafka.Permanent(err)
	}
	h.log.Debug("signal request served",
		applogger.String("symbol", sig.Symbol),
		applogger.String("id", sig.ID),
		applogger.String("direction", string(sig.Direction)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*SignalRequestsHandler)(nil)
