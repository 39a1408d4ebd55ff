package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"SignalSmith/internal/domain/models"
	"SignalSmith/internal/service/metrics"
	xhttp "SignalSmith/pkg/http"
	xlogger "SignalSmith/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalService is what the handler needs from the signal use case.
type SignalService interface {
	Indicators(ctx context.Context, req models.IndicatorsRequest) (models.IndicatorBundle, error)
	Generate(ctx context.Context, req models.SignalRequest) (models.Signal, error)
	Compose(ctx context.Context, req models.ComposeRequest) (models.Signal, error)
	History(ctx context.Context, req models.HistoryRequest) ([]models.Signal, time.Time, time.Time, error)
}

// SignalsEchoHandler serves the indicator and signal endpoints.
type SignalsEchoHandler struct {
	logger *xlogger.Logger
	svc    SignalService
}

func NewSignalsEchoHandler(logger *xlogger.Logger, svc SignalService) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, svc: svc}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/indicators", h.Indicators)
	g.POST("/signals", h.Generate)
	g.POST("/signals/compose", h.Compose)
	g.GET("/signals/history", h.History)
}

func (h *SignalsEchoHandler) Indicators(c echo.Context) error {
	defer observe("indicators", time.Now())
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "indicators", verr)
	}

	res, err := h.svc.Indicators(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Generate(c echo.Context) error {
	defer observe("signals", time.Now())
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "signals", verr)
	}

	res, err := h.svc.Generate(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Compose(c echo.Context) error {
	defer observe("compose", time.Now())
	req := &models.ComposeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "compose", verr)
	}

	res, err := h.svc.Compose(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "compose", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	defer observe("history", time.Now())
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "history", verr)
	}

	rows, from, to, err := h.svc.History(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "history", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, &xhttp.RangeListResponse{
		Rows:  rows,
		Total: int64(len(rows)),
		Range: xhttp.TimeRange{From: from, To: to},
	})
}

func (h *SignalsEchoHandler) badRequest(c echo.Context, endpoint string, verr interface{}) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_BAD_REQUEST").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *SignalsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := MapError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.String("code", appErr.Code), xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// MapError turns domain errors into transport errors.
func MapError(err error) *xhttp.AppError {
	var (
		invalid  *models.InvalidInputError
		valErr   *models.ValidationError
		inconsis *models.InconsistentDirectionError
		upstream *models.UpstreamError
		appErr   *xhttp.AppError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &invalid):
		return xhttp.NewAppError("ERR_INVALID_INPUT", invalid.Field, invalid.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &valErr):
		return xhttp.UnprocessableError("ERR_VALIDATION", valErr.Field, valErr.Error()).WithError(err)
	case errors.As(err, &inconsis):
		return xhttp.UnprocessableError("ERR_INCONSISTENT_DIRECTION", "", inconsis.Error()).
			WithParam("direction", string(inconsis.Direction)).WithError(err)
	case errors.As(err, &upstream):
		return xhttp.BadGatewayError(upstream.Service+" is unavailable, try again").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out, try again", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
