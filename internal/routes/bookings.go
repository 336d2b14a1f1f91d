package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/middleware"
)

// RegisterBookingRoutes wires the booking lifecycle endpoints.
func RegisterBookingRoutes(r fiber.Router, h *BookingHandler) {
	group := r.Group("/bookings")
	group.Post("/", middleware.RequireRole(identity.RoleClient), h.Create)
	group.Get("/", h.List)
	group.Get("/:id", h.Get)
	group.Post("/:id/pay", h.Pay)
	group.Patch("/:id/status", h.UpdateStatus)
	group.Post("/:id/dispute", h.Dispute)
}
