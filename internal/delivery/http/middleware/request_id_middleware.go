package middleware

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"

	deliverycontext "stroll/internal/delivery/context"
)

// RequestIDMiddleware tags every request with an id and threads a
// request-scoped logger through the request context.
type RequestIDMiddleware struct {
	logger *slog.Logger
}

// NewRequestIDMiddleware creates a new request id middleware
func NewRequestIDMiddleware(logger *slog.Logger) *RequestIDMiddleware {
	return &RequestIDMiddleware{
		logger: logger,
	}
}

// Process reuses a client-supplied X-Request-Id or generates one, echoes it
// on the response, and stores an id-tagged logger in the request context.
func (m *RequestIDMiddleware) Process(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(deliverycontext.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Response().Header().Set(deliverycontext.HeaderXRequestID, requestID)

		// The access log line for this request carries the same id.
		slogecho.AddCustomAttributes(c, slog.String("request_id", requestID))

		reqLogger := m.logger.With(slog.String("request_id", requestID))
		ctx := deliverycontext.WithRequestID(c.Request().Context(), requestID)
		ctx = deliverycontext.WithLogger(ctx, reqLogger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
