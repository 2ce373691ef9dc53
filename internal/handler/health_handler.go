package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-feedback-insights/internal/config"
	"github.com/noah-isme/gema-feedback-insights/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string     `json:"status"`
	Timestamp   time.Time  `json:"timestamp"`
	Service     string     `json:"service"`
	Environment string     `json:"environment"`
	SnapshotAt  *time.Time `json:"snapshot_at"`
}

// SnapshotClock reports when the cached snapshot was last read.
type SnapshotClock interface {
	FetchedAt() (time.Time, bool)
}

// HealthCheck returns a handler that reports application health information.
// snapshots may be nil.
func HealthCheck(cfg config.Config, snapshots SnapshotClock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if snapshots != nil {
			if fetchedAt, ok := snapshots.FetchedAt(); ok {
				payload.SnapshotAt = &fetchedAt
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
