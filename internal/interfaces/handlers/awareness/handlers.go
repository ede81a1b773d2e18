package awareness

import (
	awsvc "ecotrack-backend/internal/application/awareness"
	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *awsvc.Service
}

// List GET /api/v1/awareness
func (h *Handlers) List(c *fiber.Ctx) error {
	f := awsvc.Filter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Featured: c.QueryBool("featured"),
		Page:     handlers.QueryInt(c, "page", 1),
		Limit:    handlers.QueryInt(c, "limit", 20),
	}
	rows, total, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Posts fetched successfully", rows, response.NewPage(f.Page, f.Limit, total))
}

// Get GET /api/v1/awareness/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Post fetched successfully", p, nil)
}

// Create POST /api/v1/awareness (admin)
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in awsvc.PostInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Service.Create(c.UserContext(), middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Post published successfully", p, nil)
}

// Update PUT /api/v1/awareness/:id (admin)
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var in awsvc.PostUpdate
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	u := middleware.GetUser(c)
	p, err := h.Service.Update(c.UserContext(), id, u.UserID, u.IsAdmin(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Post updated successfully", p, nil)
}

// Delete DELETE /api/v1/awareness/:id (admin) unpublishes the post.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	u := middleware.GetUser(c)
	if err := h.Service.Unpublish(c.UserContext(), id, u.UserID, u.IsAdmin()); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Post unpublished", nil, nil)
}

type commentRequest struct {
	Content string `json:"content"`
}

// AddComment POST /api/v1/awareness/:id/comments
func (h *Handlers) AddComment(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req commentRequest
	if err := handlers.Bind(c, &req); err != nil {
		return response.FromError(c, err)
	}
	cm, err := h.Service.AddComment(c.UserContext(), id, middleware.GetUser(c).UserID, req.Content)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Comment added", cm, nil)
}

// Comments GET /api/v1/awareness/:id/comments
func (h *Handlers) Comments(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.Service.Comments(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Comments fetched successfully", rows, nil)
}
