package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/dispute"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/middleware"
)

// RegisterAdminRoutes wires administrator-only endpoints.
func RegisterAdminRoutes(r fiber.Router, disputes *dispute.Handler) {
	group := r.Group("/admin", middleware.RequireRole(identity.RoleAdmin))
	group.Post("/disputes/:id/resolve", disputes.Resolve)
}
