package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-feedback-insights/internal/observability"
)

// Observability records request metrics and a structured log line for every
// request whose path starts with prefix.
func Observability(logger zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		if err != nil {
			// Let the app error handler settle the status before it is recorded.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		recordDashboardRequest(logger, c, time.Since(start))
		return err
	}
}

func recordDashboardRequest(logger zerolog.Logger, c *fiber.Ctx, duration time.Duration) {
	route := routeTemplate(c)
	method := c.Method()
	status := c.Response().StatusCode()
	statusLabel := strconv.Itoa(status)

	observability.DashboardRequests().WithLabelValues(method, route, statusLabel).Inc()
	observability.DashboardLatency().WithLabelValues(method, route).Observe(duration.Seconds())
	if status >= fiber.StatusBadRequest {
		observability.DashboardErrors().WithLabelValues(method, route, statusLabel).Inc()
	}

	event := logger.Info()
	message := "dashboard request completed"
	switch {
	case status >= fiber.StatusInternalServerError:
		event = logger.Error()
		message = "dashboard request failed"
	case status >= fiber.StatusBadRequest:
		event = logger.Warn()
		message = "dashboard request rejected"
	}

	event.
		Str("correlation_id", GetCorrelationID(c)).
		Str("route", route).
		Str("method", method).
		Int("status", status).
		Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
		Str("latency_bucket", latencyBucket(duration)).
		Msg(message)
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return "unmatched"
}

var latencyBuckets = []struct {
	limit time.Duration
	label string
}{
	{25 * time.Millisecond, "<=25ms"},
	{50 * time.Millisecond, "<=50ms"},
	{100 * time.Millisecond, "<=100ms"},
	{250 * time.Millisecond, "<=250ms"},
	{500 * time.Millisecond, "<=500ms"},
}

func latencyBucket(duration time.Duration) string {
	for _, bucket := range latencyBuckets {
		if duration <= bucket.limit {
			return bucket.label
		}
	}
	return ">500ms"
}
