package admin

import (
	"strings"

	"ecotrack-backend/internal/interfaces/handlers"
	"ecotrack-backend/internal/pkg/response"
	"ecotrack-backend/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers exposes admin-only broadcast and inspection endpoints.
type Handlers struct {
	Hub         *realtime.Hub
	Broadcaster *realtime.Broadcaster
}

var severities = map[string]bool{
	realtime.SeverityInfo:     true,
	realtime.SeverityWarning:  true,
	realtime.SeverityCritical: true,
}

// Alert POST /api/v1/admin/alerts
func (h *Handlers) Alert(c *fiber.Ctx) error {
	var a realtime.Alert
	if err := handlers.Bind(c, &a); err != nil {
		return response.FromError(c, err)
	}
	a.Message = strings.TrimSpace(a.Message)
	if a.Message == "" {
		return response.BadRequest(c, "message is required")
	}
	if a.Severity != "" && !severities[a.Severity] {
		return response.BadRequest(c, "severity must be info, warning or critical")
	}
	if a.Type == "" {
		a.Type = "manual"
	}
	h.Broadcaster.AdminAlert(c.UserContext(), a)
	log.Info().Str("type", a.Type).Str("severity", a.Severity).Msg("admin alert sent")
	return response.Success(c, "Alert sent", a, nil)
}

type announcementRequest struct {
	Message string `json:"message"`
}

// Announce POST /api/v1/admin/announcements
func (h *Handlers) Announce(c *fiber.Ctx) error {
	var req announcementRequest
	if err := handlers.Bind(c, &req); err != nil {
		return response.FromError(c, err)
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return response.BadRequest(c, "message is required")
	}
	h.Broadcaster.Announcement(c.UserContext(), msg)
	return response.Success(c, "Announcement sent", fiber.Map{"message": msg}, nil)
}

// Realtime GET /api/v1/admin/realtime reports connections on this instance.
func (h *Handlers) Realtime(c *fiber.Ctx) error {
	return response.Success(c, "Realtime stats fetched successfully", h.Hub.Stats(), nil)
}
