package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/catalog"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/middleware"
)

// RegisterCatalogPublicRoutes wires unauthenticated offering browsing.
func RegisterCatalogPublicRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/stylists/:stylist_id/offerings", h.ListByStylist)
	r.Get("/offerings/:id", h.Get)
}

// RegisterCatalogRoutes wires stylist-only offering management.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Post("/offerings", middleware.RequireRole(identity.RoleStylist), h.Create)
}
