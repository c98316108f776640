package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	"CoinDash/internal/service/metrics"
	"CoinDash/internal/usecase"
	xhttp "CoinDash/pkg/http"
	xlogger "CoinDash/pkg/logger"
	"CoinDash/pkg/util"
)

// DashboardService is what the transport needs from the aggregator.
type DashboardService interface {
	Build(ctx context.Context, p usecase.DashboardParams) (*models.Dashboard, error)
	Coins(ctx context.Context) ([]models.CoinOption, error)
	DefaultSymbol(ctx context.Context) (string, error)
	Balance(ctx context.Context, symbol, address string) (models.WalletBalance, error)
}

// DashboardHandler serves the dashboard REST API.
type DashboardHandler struct {
	logger   *xlogger.Logger
	svc      DashboardService
	sessions domrepo.SessionStore
}

func NewDashboardHandler(logger *xlogger.Logger, svc DashboardService, sessions domrepo.SessionStore) *DashboardHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardHandler{logger: logger, svc: svc, sessions: sessions}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/coins", h.Coins)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/wallet", h.Wallet)
	g.PUT("/sessions/:id/selection", h.SaveSelection)
	g.GET("/sessions/:id/selection", h.GetSelection)
	g.DELETE("/sessions/:id", h.DeleteSession)
	g.GET("/sessions/:id/dashboard", h.SessionDashboard)
}

func (h *DashboardHandler) Coins(c echo.Context) error {
	start := time.Now()
	res, err := h.svc.Coins(c.Request().Context())
	h.observe("coins", start, err)
	if err != nil {
		h.logger.Error("coins usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	start := time.Now()
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Build(c.Request().Context(), usecase.DashboardParams{
		Symbol:   req.Symbol,
		Address:  req.Address,
		Interval: req.Interval,
		Limit:    req.Limit,
	})
	h.observe("dashboard", start, err)
	if err != nil {
		h.logger.Error("dashboard usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Wallet(c echo.Context) error {
	start := time.Now()
	req := &models.WalletRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Balance(c.Request().Context(), req.Symbol, req.Address)
	h.observe("wallet", start, err)
	if err != nil {
		h.logger.Warn("wallet lookup failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) SaveSelection(c echo.Context) error {
	req := &models.SelectionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sel := models.Selection{Symbol: util.NormalizeSymbol(req.Symbol), Address: req.Address}
	if err := h.sessions.Save(c.Request().Context(), req.SessionID, sel); err != nil {
		h.logger.Error("session save error", xlogger.String("session", req.SessionID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, sel)
}

func (h *DashboardHandler) GetSelection(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sel, err := h.sessions.Get(c.Request().Context(), req.SessionID)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, sel)
}

func (h *DashboardHandler) DeleteSession(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.sessions.Delete(c.Request().Context(), req.SessionID); err != nil {
		h.logger.Error("session delete error", xlogger.String("session", req.SessionID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, nil)
}

// SessionDashboard builds the dashboard for the session's selection, or for the first
// listed coin when the session has none yet.
func (h *DashboardHandler) SessionDashboard(c echo.Context) error {
	start := time.Now()
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	sel, err := h.sessions.Get(ctx, req.SessionID)
	if errors.Is(err, domrepo.ErrSessionNotFound) {
		sel.Symbol, err = h.svc.DefaultSymbol(ctx)
	}
	if err != nil {
		h.observe("session_dashboard", start, err)
		h.logger.Error("session selection error", xlogger.String("session", req.SessionID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	res, err := h.svc.Build(ctx, usecase.DashboardParams{Symbol: sel.Symbol, Address: sel.Address})
	h.observe("session_dashboard", start, err)
	if err != nil {
		h.logger.Error("dashboard usecase error", xlogger.String("symbol", sel.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) observe(endpoint string, start time.Time, err error) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
	}
}

// toAppError maps domain errors onto HTTP statuses. Anything unknown is an upstream failure.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrSymbolRequired),
		errors.Is(err, usecase.ErrWalletUnsupported),
		errors.Is(err, usecase.ErrAddressRequired),
		errors.Is(err, domrepo.ErrInvalidSessionID):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrCoinNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrSessionNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return xhttp.UnavailableError("upstream data unavailable").WithError(err)
	}
}
