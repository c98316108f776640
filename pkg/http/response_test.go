package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAppError(t *testing.T, err error) (int, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, err))

	var env APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestAppErrorResponseUsesWrappedAppError(t *testing.T) {
	cause := errors.New("coinlore tickers: status 502")
	err := fmt.Errorf("dashboard: %w", UnavailableError("upstream data unavailable").WithError(cause))

	code, env := writeAppError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
	assert.Equal(t, []interface{}{map[string]interface{}{
		"code":    "ERR_UNAVAILABLE",
		"message": "upstream data unavailable",
	}}, env.Data)
	assert.ErrorIs(t, err, cause)
}

func TestAppErrorResponseHidesPlainErrors(t *testing.T) {
	code, env := writeAppError(t, errors.New("dial tcp 10.0.0.7:9000: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Something went wrong", env.Data)
}
