package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/middleware"
)

// Handler exposes offering management over HTTP.
type Handler struct {
	service *Service
	users   *identity.Service
}

// NewHandler builds a catalog handler.
func NewHandler(service *Service, users *identity.Service) *Handler {
	return &Handler{service: service, users: users}
}

type createOfferingRequest struct {
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	DurationMin int      `json:"duration_min"`
	Slots       []string `json:"slots"`
}

// Create publishes an offering for the authenticated stylist.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createOfferingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	uid, _ := c.Locals(middleware.LocalUserID).(string)
	stylist, err := h.users.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "unknown caller")
	}

	o, err := h.service.Create(c.UserContext(), CreateInput{
		StylistID:   stylist.ID,
		StylistName: stylist.Name,
		Name:        req.Name,
		Price:       req.Price,
		DurationMin: req.DurationMin,
		Slots:       req.Slots,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(presentOffering(o))
}

// Get returns one offering.
func (h *Handler) Get(c *fiber.Ctx) error {
	o, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "offering not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(presentOffering(o))
}

// ListByStylist returns a stylist's active offerings.
func (h *Handler) ListByStylist(c *fiber.Ctx) error {
	items, err := h.service.ListByStylist(c.UserContext(), c.Params("stylist_id"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(items))
	for _, o := range items {
		out = append(out, presentOffering(o))
	}
	return c.JSON(fiber.Map{"offerings": out})
}

func presentOffering(o Offering) fiber.Map {
	return fiber.Map{
		"id":           o.ID,
		"stylist_id":   o.StylistID,
		"stylist_name": o.StylistName,
		"name":         o.Name,
		"price":        o.Price,
		"duration_min": o.DurationMin,
		"slots":        o.Slots,
		"active":       o.Active,
		"created_at":   o.CreatedAt,
	}
}
