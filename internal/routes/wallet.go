package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/funding"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/middleware"
)

// RegisterWalletRoutes wires wallet and funding endpoints. Payouts are
// stylist-only; everything else applies to the caller's own wallet.
func RegisterWalletRoutes(r fiber.Router, wallet *ledger.Handler, funds *funding.Handler) {
	group := r.Group("/wallet")
	group.Get("/", wallet.Balance)
	group.Get("/transactions", wallet.Transactions)
	group.Post("/topup", funds.TopUp)
	group.Post("/payouts", middleware.RequireRole(identity.RoleStylist), funds.RequestPayout)
}
