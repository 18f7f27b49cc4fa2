package middleware

import (
	"context"
	"strings"

	"storefront/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// RequestContext propagates X-Correlation-ID, generating one when absent, and stores a
// request-scoped log entry carrying it and any Idempotency-Key in the request context.
func RequestContext(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			correlationID := strings.TrimSpace(req.Header.Get(common.CorrelationIDHeader))
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			c.Response().Header().Set(common.CorrelationIDHeader, correlationID)

			fields := log.Fields{
				"correlation_id": correlationID,
				"method":         req.Method,
				"path":           c.Path(),
			}

			ctx := context.WithValue(req.Context(), common.CorrelationIDKey, correlationID)
			if key := strings.TrimSpace(req.Header.Get(common.IdempotencyKeyHeader)); key != "" {
				ctx = context.WithValue(ctx, common.IdempotencyKeyKey, key)
				fields["idempotency_key"] = key
			}
			ctx = common.WithLogger(ctx, logger.WithFields(fields))

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
