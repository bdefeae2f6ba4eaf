// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the user identity set by the Gateway.
// Every write path in the engine needs a user; reads under /api are fine
// without one, so only missing identity on mutating methods is rejected.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))

		method := c.Method()
		mutating := method == fiber.MethodPost || method == fiber.MethodPut ||
			method == fiber.MethodPatch || method == fiber.MethodDelete
		if mutating && userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s %s", method, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
