package user

import (
	"time"

	"ecotrack-backend/internal/application/leaderboard"
	usersvc "ecotrack-backend/internal/application/user"
	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *usersvc.Service
	Board   *leaderboard.Service
}

// Profile GET /api/v1/users/profile
func (h *Handlers) Profile(c *fiber.Ctx) error {
	p, err := h.Service.Profile(c.UserContext(), middleware.GetUser(c).UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile fetched successfully", p, nil)
}

// UpdateProfile PUT /api/v1/users/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var in usersvc.ProfileUpdate
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	u, err := h.Service.UpdateProfile(c.UserContext(), middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile updated successfully", u, nil)
}

// Stats GET /api/v1/users/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	st, err := h.Service.Stats(c.UserContext(), middleware.GetUser(c).UserID, time.Now())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Stats fetched successfully", st, nil)
}

// Points GET /api/v1/users/points?limit=
func (h *Handlers) Points(c *fiber.Ctx) error {
	rows, err := h.Service.Points(c.UserContext(), middleware.GetUser(c).UserID, handlers.QueryInt(c, "limit", 50))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Point history fetched successfully", rows, nil)
}

// Leaderboard GET /api/v1/users/leaderboard?limit= (public). Signed-in callers
// also get their own position.
func (h *Handlers) Leaderboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	top, err := h.Board.Top(ctx, handlers.QueryInt(c, "limit", 10))
	if err != nil {
		return response.FromError(c, err)
	}
	meta := fiber.Map{}
	if p := middleware.GetUser(c); p != nil {
		if pos, err := h.Board.Position(ctx, p.UserID); err == nil {
			meta["position"] = pos
		}
	}
	return response.Success(c, "Leaderboard fetched successfully", top, meta)
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetStatus PATCH /api/v1/users/:id/status (admin)
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req statusRequest
	if err := handlers.Bind(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.IsActive == nil {
		return response.BadRequest(c, "is_active is required")
	}
	u, err := h.Service.SetActive(c.UserContext(), middleware.GetUser(c).UserID, id, *req.IsActive)
	if err != nil {
		return response.FromError(c, err)
	}
	msg := "User deactivated"
	if u.IsActive {
		msg = "User activated"
	}
	return response.Success(c, msg, u, nil)
}
