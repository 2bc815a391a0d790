package logging

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Middleware tags each request with an id, stores a request logger in locals
// and the user context, and logs the request once it completes.
func Middleware(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"remote", c.IP(),
		)
		c.Locals(localsKey, l)
		c.SetUserContext(WithCtx(c.UserContext(), l))

		err := c.Next()
		if err != nil {
			// let the app error handler write the response before we read the status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", len(c.Response().Body()),
		}
		if route := c.Route(); route != nil && route.Path != "" {
			attrs = append(attrs, "route", route.Path)
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}

		if status >= fiber.StatusInternalServerError {
			l.Error("http_request", attrs...)
		} else if status >= fiber.StatusBadRequest {
			l.Warn("http_request", attrs...)
		} else {
			l.Info("http_request", attrs...)
		}
		return nil
	}
}
