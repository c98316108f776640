package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/domain/models"
	"CoinDash/internal/usecase"
)

type fakeService struct{}

func (fakeService) Build(_ context.Context, p usecase.DashboardParams) (*models.Dashboard, error) {
	return &models.Dashboard{Symbol: p.Symbol, Pair: p.Symbol + "USDT"}, nil
}

func (fakeService) DefaultSymbol(context.Context) (string, error) { return "BTC", nil }

func (fakeService) Balance(_ context.Context, symbol, address string) (models.WalletBalance, error) {
	chain, ok := models.ChainFor(symbol)
	if !ok {
		return models.WalletBalance{}, usecase.ErrWalletUnsupported
	}
	return models.WalletBalance{Chain: chain, Address: address, Balance: decimal.NewFromInt(3)}, nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	NewHandler(nil, fakeService{}, Config{}).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestInitialDashboardUsesDefaultCoin(t *testing.T) {
	conn := dial(t, newServer(t), "")

	msg := read(t, conn)
	assert.Equal(t, TypeDashboard, msg.Type)
	require.NotNil(t, msg.Dashboard)
	assert.Equal(t, "BTC", msg.Dashboard.Symbol)
}

func TestSelectRefreshAndWallet(t *testing.T) {
	conn := dial(t, newServer(t), "?symbol=xrp")

	msg := read(t, conn)
	require.NotNil(t, msg.Dashboard)
	assert.Equal(t, "XRP", msg.Dashboard.Symbol)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSelect, Symbol: "eth"}))
	msg = read(t, conn)
	assert.Equal(t, TypeDashboard, msg.Type)
	assert.Equal(t, "ETH", msg.Dashboard.Symbol)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionRefresh}))
	msg = read(t, conn)
	assert.Equal(t, "ETH", msg.Dashboard.Symbol)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionWallet, Address: "0xabc"}))
	msg = read(t, conn)
	assert.Equal(t, TypeWallet, msg.Type)
	require.NotNil(t, msg.Wallet)
	assert.Equal(t, models.ChainETH, msg.Wallet.Chain)
	assert.Equal(t, "0xabc", msg.Wallet.Address)
}

func TestSelectionIsPerConnection(t *testing.T) {
	srv := newServer(t)
	a := dial(t, srv, "")
	b := dial(t, srv, "")
	read(t, a)
	read(t, b)

	require.NoError(t, a.WriteJSON(ClientMessage{Action: ActionSelect, Symbol: "ETH"}))
	assert.Equal(t, "ETH", read(t, a).Dashboard.Symbol)

	require.NoError(t, b.WriteJSON(ClientMessage{Action: ActionRefresh}))
	assert.Equal(t, "BTC", read(t, b).Dashboard.Symbol)
}

func TestBadMessagesKeepConnectionOpen(t *testing.T) {
	conn := dial(t, newServer(t), "?symbol=DOGE")
	read(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "malformed message", msg.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "dance"}))
	assert.Equal(t, "unknown action dance", read(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionSelect}))
	assert.Equal(t, "symbol required", read(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionWallet}))
	assert.Equal(t, usecase.ErrAddressRequired.Error(), read(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionWallet, Address: "D123"}))
	assert.Equal(t, usecase.ErrWalletUnsupported.Error(), read(t, conn).Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionRefresh}))
	msg = read(t, conn)
	assert.Equal(t, TypeDashboard, msg.Type)
	assert.Equal(t, "DOGE", msg.Dashboard.Symbol)
}

func TestShutdownClosesSessionsAndRefusesNewOnes(t *testing.T) {
	e := echo.New()
	h := NewHandler(nil, fakeService{}, Config{})
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "")
	read(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestShutdownWithNoSessions(t *testing.T) {
	h := NewHandler(nil, fakeService{}, Config{})
	require.NoError(t, h.Shutdown(context.Background()))
	require.NoError(t, h.Shutdown(context.Background()))
}
