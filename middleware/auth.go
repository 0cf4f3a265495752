package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"incident-report-system/models"
)

// UserContextMiddleware extracts the user identity and role set by the
// Gateway and attaches them for handlers. Requests without an identity
// are rejected on secured routes.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		role := models.RoleReporter
		switch models.Role(strings.TrimSpace(strings.ToLower(c.Get("X-User-Role")))) {
		case models.RoleReviewer:
			role = models.RoleReviewer
		case models.RoleAdmin:
			role = models.RoleAdmin
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	}
}
