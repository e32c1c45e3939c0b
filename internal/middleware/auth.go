package middleware

import (
	"learnhub-backend/internal/identity"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const callerLocal = "caller"
const principalHeader = "X-User-Id"

// Authenticate resolves the request principal through the injected identity
// gate and stores the Caller in Locals. Returns 401 with the standard error
// format when resolution fails.
func Authenticate(gate identity.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := c.Get(principalHeader)
		if principal == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		caller, err := gate.Resolve(c.Context(), principal)
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(callerLocal, caller)
		return c.Next()
	}
}

// RequirePlatformAdmin guards admin-only routes. Must run after Authenticate.
func RequirePlatformAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := GetCaller(c)
		if caller == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !caller.PlatformAdmin {
			return response.Error(c, "Platform admin privilege required", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// GetCaller returns the resolved caller from Locals (nil if unauthenticated).
func GetCaller(c *fiber.Ctx) *identity.Caller {
	caller, _ := c.Locals(callerLocal).(*identity.Caller)
	return caller
}
