package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
)

// RequestLogger attaches a request scoped logger (request id, method,
// path) to the request context and logs one line per request.
func RequestLogger(l logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			rl := l.With("request_id", rid, "method", req.Method, "path", c.Path())
			ctx := logger.WithContext(req.Context(), rl)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			switch {
			case status >= 500:
				rl.Errorf(ctx, "%d %s in %s user=%s err=%v", status, req.URL.Path, time.Since(start), callerKey(c), err)
			case status >= 400:
				rl.Warnf(ctx, "%d %s in %s user=%s", status, req.URL.Path, time.Since(start), callerKey(c))
			default:
				rl.Infof(ctx, "%d %s in %s user=%s", status, req.URL.Path, time.Since(start), callerKey(c))
			}
			return nil
		}
	}
}
