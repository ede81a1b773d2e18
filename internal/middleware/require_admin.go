package middleware

import (
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin must run after RequireAuth. Non-admins get 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetUser(c)
		if p == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !p.IsAdmin() {
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		return c.Next()
	}
}
