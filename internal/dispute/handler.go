package dispute

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/middleware"
)

// Handler exposes dispute resolution to administrators.
type Handler struct {
	resolver *Resolver
	users    *identity.Service
}

// NewHandler builds a dispute handler.
func NewHandler(resolver *Resolver, users *identity.Service) *Handler {
	return &Handler{resolver: resolver, users: users}
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

// Resolve applies an administrative decision to a disputed booking.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	uid, _ := c.Locals(middleware.LocalUserID).(string)
	admin, err := h.users.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "unknown caller")
	}

	b, err := h.resolver.Resolve(c.UserContext(), c.Params("id"), Resolution(req.Resolution),
		Actor{ID: admin.ID, Name: admin.Name}, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "booking not found")
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrNotDisputed):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrEscrowReleaseFailed):
			// Decision is durable; the caller retries to finish settlement.
			return c.Status(http.StatusBadGateway).JSON(fiber.Map{
				"error":      err.Error(),
				"booking_id": b.ID,
				"resolution": b.DisputeResolution,
				"retryable":  true,
			})
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.JSON(fiber.Map{
		"id":                 b.ID,
		"status":             string(b.Status),
		"payment_status":     string(b.PaymentStatus),
		"dispute_resolution": b.DisputeResolution,
		"dispute_history":    b.DisputeHistory,
	})
}
