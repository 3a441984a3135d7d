package ratelimit

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests with 429 when the limiter says no. The key is
// the caller's IP, which covers both anonymous widget traffic and API callers.
func Middleware(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			if !l.Allow(c.Request().Context(), ip) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":   "too_many_requests",
					"message": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
