package middleware

import (
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, nil)
	}
	return response.FromError(c, err)
}
