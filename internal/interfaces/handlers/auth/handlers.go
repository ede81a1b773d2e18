package auth

import (
	"errors"

	usersvc "ecotrack-backend/internal/application/user"
	authsvc "ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Users   *usersvc.Service
}

// Register POST /api/v1/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in authsvc.RegisterInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	u, err := h.Service.Register(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "User registered successfully", u, nil)
}

// Login POST /api/v1/auth/login. Unknown emails and wrong passwords are both 401.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in authsvc.LoginInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Login(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidEmail) {
			return response.Unauthorized(c, err.Error())
		}
		return response.FromError(c, err)
	}
	return response.Success(c, "Login successful", res, nil)
}

// Logout POST /api/v1/auth/logout revokes the presented token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if err := h.Service.Logout(c.UserContext(), middleware.GetUser(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Logout successful", nil, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	p := middleware.GetUser(c)
	if p == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	profile, err := h.Users.Profile(c.UserContext(), p.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Authenticated", profile, nil)
}
