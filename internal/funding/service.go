package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/glowbook/glowbook/internal/ledger"
)

// ErrDeclined occurs when the gateway refuses an authorization.
var ErrDeclined = fmt.Errorf("payment declined by gateway")

// Service moves money across the platform boundary: top-ups into client
// wallets and payouts out to stylists.
type Service struct {
	ledger  ledger.Ledger
	gateway Gateway
}

// NewService builds a funding service.
func NewService(led ledger.Ledger, gateway Gateway) *Service {
	if gateway == nil {
		gateway = StaticGateway{}
	}
	return &Service{ledger: led, gateway: gateway}
}

// TopUpInput captures a wallet top-up request.
type TopUpInput struct {
	OwnerID    string
	Amount     int64
	CardNumber string
	Expiry     string
	CVV        string
}

// Result describes the ledger outcome of a funding operation.
type Result struct {
	TransactionID string
	Balance       int64
	Reference     string
	CompletedAt   time.Time
}

// TopUp authorizes the card with the gateway and credits the wallet.
func (s *Service) TopUp(ctx context.Context, input TopUpInput) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	decision, err := s.gateway.AuthorizeTopUp(ctx, TopUpAuthorization{
		CardNumber: input.CardNumber,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
		Amount:     input.Amount,
	})
	if err != nil {
		return Result{}, err
	}
	if !decision.Approved {
		return Result{}, ErrDeclined
	}

	rec, err := s.ledger.Record(ctx, ledger.Movement{
		OwnerID:     input.OwnerID,
		Kind:        ledger.KindCredit,
		Amount:      input.Amount,
		Description: "Wallet top-up",
		ExternalRef: decision.Reference,
	})
	if err != nil {
		return Result{}, err
	}

	wallet, err := s.ledger.Balance(ctx, input.OwnerID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TransactionID: rec.ID,
		Balance:       wallet.Balance,
		Reference:     decision.Reference,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// PayoutInput captures a stylist's request to withdraw earnings.
type PayoutInput struct {
	OwnerID     string
	Amount      int64
	Destination string
}

// RequestPayout debits the wallet immediately and records a pending payout
// transaction; the settlement worker finishes it against the gateway.
func (s *Service) RequestPayout(ctx context.Context, input PayoutInput) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, fmt.Errorf("amount must be positive")
	}
	if input.Destination == "" {
		return Result{}, fmt.Errorf("payout destination is required")
	}

	rec, err := s.ledger.Record(ctx, ledger.Movement{
		OwnerID:     input.OwnerID,
		Kind:        ledger.KindPayout,
		Amount:      input.Amount,
		Description: "Payout to " + input.Destination,
		ExternalRef: input.Destination,
		Status:      ledger.TxPending,
	})
	if err != nil {
		return Result{}, err
	}

	wallet, err := s.ledger.Balance(ctx, input.OwnerID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		TransactionID: rec.ID,
		Balance:       wallet.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}
