package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/pkg/utils"
)

// RequestID tags every request with an ID, reusing a client-supplied X-Request-ID.
// The ID is stored on the echo context, the response header and the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > 128 {
				requestID = utils.GenerateRequestID()
			}

			c.Set("request_id", requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.SetRequest(c.Request().WithContext(logging.ContextWithRequestID(c.Request().Context(), requestID)))

			return next(c)
		}
	}
}

// RequestLogger writes one access log line per request through the global logger
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":      v.Method,
				"uri":         v.URI,
				"status_code": v.Status,
				"latency":     v.Latency.Round(time.Microsecond).String(),
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
			}

			logger := logging.GetGlobalLogger().WithContext(c.Request().Context())
			if v.Status >= 500 {
				logger.Error("HTTP request", fields)
			} else {
				logger.Info("HTTP request", fields)
			}
			return nil
		},
	})
}
