package utils

import "github.com/gofiber/fiber/v2"

const (
	defaultSuccessMessage = "success"
	defaultErrorMessage   = "error"
)

// APIResponse is the envelope shared by every dashboard endpoint.
// Meta carries snapshot freshness; Details carries per-field validation failures.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Message string      `json:"message"`
}

// OK sends a 200 response carrying data and optional metadata.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
		Message: orDefault(message, defaultSuccessMessage),
	})
}

// SendSuccess is OK without metadata.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return OK(c, data, message, nil)
}

// Fail sends an unsuccessful envelope. A zero status becomes 500.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return write(c, status, APIResponse{
		Success: false,
		Details: details,
		Message: orDefault(message, defaultErrorMessage),
	})
}

// SendError is Fail without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	return c.Status(status).JSON(body)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
