package activity

import (
	actsvc "ecotrack-backend/internal/application/activity"
	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *actsvc.Service
}

func filterFrom(c *fiber.Ctx) (actsvc.Filter, error) {
	f := actsvc.Filter{
		Category: c.Query("category"),
		Page:     handlers.QueryInt(c, "page", 1),
		Limit:    handlers.QueryInt(c, "limit", 20),
	}
	var err error
	if f.From, err = handlers.QueryTime(c, "from"); err != nil {
		return f, err
	}
	f.To, err = handlers.QueryTime(c, "to")
	return f, err
}

// LogFootprint POST /api/v1/footprint
func (h *Handlers) LogFootprint(c *fiber.Ctx) error {
	var in actsvc.FootprintInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	entry, award, err := h.Service.LogFootprint(c.UserContext(), middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Footprint logged successfully", entry, fiber.Map{"award": award})
}

// Footprints GET /api/v1/footprint
func (h *Handlers) Footprints(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return response.FromError(c, err)
	}
	rows, total, err := h.Service.Footprints(c.UserContext(), middleware.GetUser(c).UserID, f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Footprint logs fetched successfully", rows, response.NewPage(f.Page, f.Limit, total))
}

// FootprintSummary GET /api/v1/footprint/summary
func (h *Handlers) FootprintSummary(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return response.FromError(c, err)
	}
	sum, err := h.Service.FootprintSummary(c.UserContext(), middleware.GetUser(c).UserID, f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Footprint summary fetched successfully", sum, nil)
}

// DeleteFootprint DELETE /api/v1/footprint/:id
func (h *Handlers) DeleteFootprint(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.DeleteFootprint(c.UserContext(), middleware.GetUser(c).UserID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Footprint log deleted", nil, nil)
}

// LogWater POST /api/v1/water
func (h *Handlers) LogWater(c *fiber.Ctx) error {
	var in actsvc.WaterInput
	if err := handlers.Bind(c, &in); err != nil {
		return response.FromError(c, err)
	}
	entry, award, err := h.Service.LogWater(c.UserContext(), middleware.GetUser(c).UserID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Water usage logged successfully", entry, fiber.Map{"award": award})
}

// WaterLogs GET /api/v1/water
func (h *Handlers) WaterLogs(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return response.FromError(c, err)
	}
	rows, total, err := h.Service.WaterLogs(c.UserContext(), middleware.GetUser(c).UserID, f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Water logs fetched successfully", rows, response.NewPage(f.Page, f.Limit, total))
}

// WaterSummary GET /api/v1/water/summary
func (h *Handlers) WaterSummary(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return response.FromError(c, err)
	}
	sum, err := h.Service.WaterSummary(c.UserContext(), middleware.GetUser(c).UserID, f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Water summary fetched successfully", sum, nil)
}

// DeleteWater DELETE /api/v1/water/:id
func (h *Handlers) DeleteWater(c *fiber.Ctx) error {
	id, err := handlers.ParamUUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.DeleteWater(c.UserContext(), middleware.GetUser(c).UserID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Water log deleted", nil, nil)
}
