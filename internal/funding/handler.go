package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/middleware"
)

// Handler exposes funding endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type topUpRequest struct {
	Amount     int64  `json:"amount"`
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// TopUp credits the authenticated user's wallet from a card.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals(middleware.LocalUserID).(string)

	res, err := h.service.TopUp(c.UserContext(), TopUpInput{
		OwnerID:    uid,
		Amount:     req.Amount,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDeclined):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, ledger.ErrWalletInactive):
			return fiber.NewError(http.StatusForbidden, "wallet inactive")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance":        res.Balance,
		"reference":      res.Reference,
		"completed_at":   res.CompletedAt,
	})
}

type payoutRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

// RequestPayout starts a withdrawal of the authenticated stylist's funds.
func (h *Handler) RequestPayout(c *fiber.Ctx) error {
	var req payoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals(middleware.LocalUserID).(string)

	res, err := h.service.RequestPayout(c.UserContext(), PayoutInput{
		OwnerID:     uid,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, ledger.ErrWalletInactive):
			return fiber.NewError(http.StatusForbidden, "wallet inactive")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance":        res.Balance,
		"status":         string(ledger.TxPending),
	})
}
