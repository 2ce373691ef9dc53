package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-feedback-insights/internal/utils"
)

// RateLimit caps how often one client may call the wrapped route within window.
// Requests that fail do not count, so a store outage does not lock viewers out
// of retrying a refresh.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	retryAfter := int(window / time.Second)
	return limiter.New(limiter.Config{
		Max:                max,
		Expiration:         window,
		SkipFailedRequests: true,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many refresh requests, try again shortly", fiber.Map{
				"limit":               max,
				"window_seconds":      retryAfter,
				"retry_after_seconds": retryAfter,
			})
		},
	})
}
