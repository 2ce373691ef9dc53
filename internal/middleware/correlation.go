package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	correlationHeader      = "X-Correlation-ID"
	correlationLocal       = "correlation_id"
	maxCorrelationIDLength = 128
)

type correlationIDKey struct{}

// CorrelationID tags every request with an identifier taken from
// X-Correlation-ID or X-Request-ID, or a fresh uuid when neither is usable.
// The identifier is echoed in X-Correlation-ID and travels on the user context
// into the service layer.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := usableCorrelationID(c.Get(correlationHeader))
		if id == "" {
			id = usableCorrelationID(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(correlationHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationIDKey{}, id))

		return c.Next()
	}
}

// usableCorrelationID rejects blank, oversized and non-printable identifiers
// so they never reach log lines.
func usableCorrelationID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationIDLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// RequestLogger derives a logger that stamps lines with the request's correlation id.
func RequestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if id := GetCorrelationID(c); id != "" {
		logger = base.With().Str(correlationLocal, id).Logger()
	}
	return &logger
}
