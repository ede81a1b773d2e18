package middleware

import (
	"context"
	"strings"

	"ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// Authenticator resolves bearer tokens. *auth.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth ensures the request carries a valid bearer token. Returns 401
// with the standard error format if not.
func RequireAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c)
		if token == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		p, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			return response.Error(c, err.Error(), response.StatusFor(err), nil)
		}
		c.Locals(userLocal, p)
		return c.Next()
	}
}

// OptionalAuth attaches the principal when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearer(c); token != "" {
			if p, err := a.Authenticate(c.UserContext(), token); err == nil {
				c.Locals(userLocal, p)
			}
		}
		return c.Next()
	}
}

// GetUser returns the authenticated principal (nil if anonymous).
func GetUser(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(userLocal).(*auth.Principal)
	return p
}
