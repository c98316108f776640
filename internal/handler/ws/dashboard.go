package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinDash/internal/domain/models"
	"CoinDash/internal/service/metrics"
	"CoinDash/internal/usecase"
	xlogger "CoinDash/pkg/logger"
	"CoinDash/pkg/util"
)

const (
	ActionSelect  = "select"
	ActionRefresh = "refresh"
	ActionWallet  = "wallet"

	TypeDashboard = "dashboard"
	TypeWallet    = "wallet"
	TypeError     = "error"
)

// ClientMessage is what a client sends over the socket.
type ClientMessage struct {
	Action  string `json:"action"`
	Symbol  string `json:"symbol,omitempty"`
	Address string `json:"address,omitempty"`
}

// ServerMessage is every reply the server pushes.
type ServerMessage struct {
	Type      string                `json:"type"`
	Dashboard *models.Dashboard     `json:"dashboard,omitempty"`
	Wallet    *models.WalletBalance `json:"wallet,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// DashboardService is the slice of the aggregator the socket uses.
type DashboardService interface {
	Build(ctx context.Context, p usecase.DashboardParams) (*models.Dashboard, error)
	DefaultSymbol(ctx context.Context) (string, error)
	Balance(ctx context.Context, symbol, address string) (models.WalletBalance, error)
}

type Config struct {
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   50 * time.Second,
		MaxMessageSize: 4096,
	}
}

var ErrShuttingDown = errors.New("websocket handler shutting down")

// Handler serves /ws/dashboard. The selected coin lives on the connection only. Every
// session runs under the handler's base context, so Shutdown ends them all.
type Handler struct {
	logger   *xlogger.Logger
	svc      DashboardService
	cfg      Config
	upgrader websocket.Upgrader

	base     context.Context
	stop     context.CancelFunc
	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
}

func NewHandler(logger *xlogger.Logger, svc DashboardService, cfg Config) *Handler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	base, stop := context.WithCancel(context.Background())
	return &Handler{
		logger: logger.With(xlogger.String("handler", "ws")),
		svc:    svc,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		base: base,
		stop: stop,
	}
}

// Shutdown refuses new sessions, cancels the running ones and waits for them to end or
// for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.stop()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket sessions still open: %w", ctx.Err())
	}
}

// acquire registers a session unless Shutdown has started.
func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions.Add(1)
	return true
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/dashboard", h.Serve)
}

// Serve upgrades the request and runs the session until the client goes away.
// An optional ?symbol= picks the initial coin; otherwise the first listed coin is used.
func (h *Handler) Serve(c echo.Context) error {
	if !h.acquire() {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  http.StatusServiceUnavailable,
			"message": ErrShuttingDown.Error(),
		})
	}
	defer h.sessions.Done()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	s := &session{
		h:    h,
		conn: conn,
		log:  h.logger.With(xlogger.String("remote", c.RealIP())),
		sel:  models.Selection{Symbol: util.NormalizeSymbol(c.QueryParam("symbol"))},
	}
	s.run(h.base)
	return nil
}

type session struct {
	h    *Handler
	conn *websocket.Conn
	log  *xlogger.Logger
	sel  models.Selection
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.conn.SetReadLimit(s.h.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	})

	messages := make(chan []byte, 8)
	readErr := make(chan error, 1)
	go func() {
		defer close(messages)
		for {
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case messages <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := s.pushDashboard(ctx); err != nil {
		return
	}

	ping := time.NewTicker(s.h.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-messages:
			if !ok {
				err := <-readErr
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Warn("websocket read error", xlogger.Error(err))
				}
				return
			}
			if err := s.handle(ctx, data); err != nil {
				s.log.Warn("websocket write error", xlogger.Error(err))
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.h.cfg.WriteTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.h.cfg.WriteTimeout))
			return
		}
	}
}

// handle applies one client message. Only write errors end the session.
func (s *session) handle(ctx context.Context, data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s.sendError("malformed message")
	}

	switch msg.Action {
	case ActionSelect:
		symbol := util.NormalizeSymbol(msg.Symbol)
		if symbol == "" {
			return s.sendError("symbol required")
		}
		s.sel = models.Selection{Symbol: symbol, Address: msg.Address}
		return s.pushDashboard(ctx)
	case ActionRefresh:
		return s.pushDashboard(ctx)
	case ActionWallet:
		if msg.Address == "" {
			return s.sendError(usecase.ErrAddressRequired.Error())
		}
		if s.sel.Symbol == "" {
			return s.sendError("no coin selected")
		}
		s.sel.Address = msg.Address
		bal, err := s.h.svc.Balance(ctx, s.sel.Symbol, msg.Address)
		if err != nil {
			s.log.Warn("wallet lookup failed", xlogger.String("symbol", s.sel.Symbol), xlogger.Error(err))
			return s.sendError(err.Error())
		}
		return s.send(ServerMessage{Type: TypeWallet, Wallet: &bal})
	default:
		return s.sendError("unknown action " + msg.Action)
	}
}

func (s *session) pushDashboard(ctx context.Context) error {
	if s.sel.Symbol == "" {
		symbol, err := s.h.svc.DefaultSymbol(ctx)
		if err != nil {
			s.log.Warn("default coin unavailable", xlogger.Error(err))
			return s.sendError("coin list unavailable")
		}
		s.sel.Symbol = symbol
	}

	d, err := s.h.svc.Build(ctx, usecase.DashboardParams{Symbol: s.sel.Symbol, Address: s.sel.Address})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return s.sendError(err.Error())
	}
	return s.send(ServerMessage{Type: TypeDashboard, Dashboard: d})
}

func (s *session) sendError(msg string) error {
	return s.send(ServerMessage{Type: TypeError, Error: msg})
}

func (s *session) send(msg ServerMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
	return s.conn.WriteJSON(msg)
}
