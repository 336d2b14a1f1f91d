package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/middleware"
)

// Handler exposes wallet balance and transaction history over HTTP.
type Handler struct {
	ledger Ledger
}

// NewHandler builds a wallet handler.
func NewHandler(led Ledger) *Handler {
	return &Handler{ledger: led}
}

// Balance returns the authenticated user's wallet, creating it lazily.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals(middleware.LocalUserID).(string)
	w, err := h.ledger.Balance(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"owner_id":   w.OwnerID,
		"balance":    w.Balance,
		"currency":   w.Currency,
		"active":     w.Active,
		"created_at": w.CreatedAt,
	})
}

// Transactions lists the authenticated user's ledger history newest-first.
// Supports kind, booking_id, limit and offset query parameters.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals(middleware.LocalUserID).(string)

	f := Filter{
		Kind:      Kind(c.Query("kind")),
		BookingID: c.Query("booking_id"),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return fiber.NewError(http.StatusBadRequest, "unknown transaction kind")
	}
	p := Page{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}

	items, err := h.ledger.Transactions(c.UserContext(), uid, f, p)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(items))
	for _, tx := range items {
		m := fiber.Map{
			"id":          tx.ID,
			"kind":        string(tx.Kind),
			"amount":      tx.Amount,
			"currency":    tx.Currency,
			"status":      string(tx.Status),
			"description": tx.Description,
			"created_at":  tx.CreatedAt,
		}
		if tx.BookingID != "" {
			m["booking_id"] = tx.BookingID
		}
		if tx.ExternalRef != "" {
			m["external_ref"] = tx.ExternalRef
		}
		out = append(out, m)
	}
	return c.JSON(fiber.Map{"transactions": out})
}
