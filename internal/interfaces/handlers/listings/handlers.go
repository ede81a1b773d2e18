package listings

import (
	listsvc "ecotrack-backend/internal/application/listings"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves one listing kind. The router mounts one instance for
// recyclables and one for donations.
type Handlers struct {
	Service *listsvc.Service
	Kind    domain.ListingKind
}

func (h *Handlers) noun() string {
	if h.Kind == domain.KindDonation {
		return "Donation"
	}
	return "Item"
}

// List GET / (public)
func (h *Handlers) List(c *fiber.Ctx) error {
	f := listsvc.ListFilter{
		Category: c.Query("category"),
		City:     c.Query("city"),
		Urgency:  c.Query("urgency"),
		Search:   c.Query("search"),
		Page:     handlers.QueryInt(c, "page", 1),
		Limit:    handlers.QueryInt(c, "limit", 20),
	}
	rows, total, err := h.Service.List(c.UserContext(), h.Kind, f)
	if err != nil {
		return response.FromError(c, err)
	}
	page := response.NewPage(f.Page, f.Limit, total)
	return response.Success(c, "Listings fetched successfully", rows, page)
}

// Urgent GET /urgent (donations)
func (h *Handlers) Urgent(c *fiber.Ctx) error {
	rows, err := h.Service.Urgent(c.UserContext(), handlers.QueryInt(c, "limit", 10))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Urgent donations fetched successfully", rows, nil)
}

// Mine GET /mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	rows, err := h.Service.Mine(c.UserContext(), h.Kind, middleware.GetUser(c).UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", rows, nil)
}

// Claimed GET /claimed lists what the caller has reserved or completed.
func (h *Handlers) Claimed(c *fiber.Ctx) error {
	rows, err := h.Service.Claimed(c.UserContext(), h.Kind, middleware.GetUser(c).UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", rows, nil)
}

// Get GET /:id (public). A signed-in owner does not bump the view count.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var viewer *uuid.UUID
	if p := middleware.GetUser(c); p != nil {
		viewer = &p.UserID
	}
	l, err := h.Service.Get(c.UserContext(), h.Kind, id, viewer)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", l, nil)
}

// Create POST /
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in listsvc.CreateInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	l, err := h.Service.Create(c.UserContext(), h.Kind, middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, h.noun()+" listed successfully", l, nil)
}

// Update PUT /:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var in listsvc.UpdateInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	l, err := h.Service.Update(c.UserContext(), h.Kind, id, middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, h.noun()+" updated successfully", l, nil)
}

// Delete DELETE /:id deactivates the listing.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	p := middleware.GetUser(c)
	if err := h.Service.Deactivate(c.UserContext(), h.Kind, id, p.UserID, p.IsAdmin()); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, h.noun()+" removed successfully", nil, nil)
}

func (h *Handlers) interestBody(c *fiber.Ctx) (listsvc.InterestInput, error) {
	var in listsvc.InterestInput
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := handlers.Bind(c, &in)
	return in, err
}

// Claim POST /:id/claim
func (h *Handlers) Claim(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	in, err := h.interestBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	l, err := h.Service.Claim(c.UserContext(), h.Kind, id, middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, h.noun()+" claimed successfully", l, nil)
}

// Interest POST /:id/interest
func (h *Handlers) Interest(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	in, err := h.interestBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	row, err := h.Service.RegisterInterest(c.UserContext(), h.Kind, id, middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Interest registered", row, nil)
}

// Interests GET /:id/interests (owner or admin)
func (h *Handlers) Interests(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	p := middleware.GetUser(c)
	rows, err := h.Service.Interests(c.UserContext(), h.Kind, id, p.UserID, p.IsAdmin())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Interests fetched successfully", rows, nil)
}

// Complete POST /:id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	l, err := h.Service.Complete(c.UserContext(), h.Kind, id, middleware.GetUser(c).UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, h.noun()+" marked as completed", l, nil)
}

// Events GET /:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	p := middleware.GetUser(c)
	rows, err := h.Service.Events(c.UserContext(), h.Kind, id, p.UserID, p.IsAdmin())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", rows, nil)
}

// Mount registers the routes on r. auth guards everything except the public
// reads, which use optional.
func (h *Handlers) Mount(r fiber.Router, auth, optional fiber.Handler) {
	r.Get("/", h.List)
	r.Get("/mine", auth, h.Mine)
	r.Get("/claimed", auth, h.Claimed)
	if h.Kind == domain.KindDonation {
		r.Get("/urgent", h.Urgent)
	}
	r.Get("/:id", optional, h.Get)
	r.Post("/", auth, h.Create)
	r.Put("/:id", auth, h.Update)
	r.Delete("/:id", auth, h.Delete)
	r.Post("/:id/claim", auth, h.Claim)
	r.Post("/:id/interest", auth, h.Interest)
	r.Get("/:id/interests", auth, h.Interests)
	r.Post("/:id/complete", auth, h.Complete)
	r.Get("/:id/events", auth, h.Events)
}
