package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-feedback-insights/internal/config"
	"github.com/noah-isme/gema-feedback-insights/internal/handler"
	"github.com/noah-isme/gema-feedback-insights/internal/observability"
)

// FeedbackPrefix is the route group serving the instructor dashboard.
const FeedbackPrefix = "/api/v2/feedback"

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	FeedbackDashboardHandler *handler.FeedbackDashboardHandler
	Snapshots                handler.SnapshotClock
	DisableMetrics           bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Snapshots))

	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	if deps.FeedbackDashboardHandler != nil {
		feedback := app.Group(FeedbackPrefix, func(c *fiber.Ctx) error {
			c.Set("X-Application", cfg.AppName)
			return c.Next()
		})
		deps.FeedbackDashboardHandler.Register(feedback)
	}
}
