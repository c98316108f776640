package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// KeyLimiter decides whether the caller identified by key may proceed.
type KeyLimiter interface {
	Allow(key string) bool
}

// RateLimit rejects callers over their budget with a 429 envelope. Callers are keyed by
// client IP.
func RateLimit(limiter KeyLimiter, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || (skip != nil && skip(c)) {
				return next(c)
			}
			if !limiter.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
