// Package escrow keeps booking payment state and ledger balances
// consistent. Every coordinator operation applies its ledger movement and
// its booking update as one atomic unit: funds can never leave a wallet
// without the booking recording it, and vice versa.
package escrow

import (
	"context"
	"errors"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/ledger"
)

var (
	// ErrNoEscrowHeld occurs when a release or refund finds no funds held
	// for the booking.
	ErrNoEscrowHeld = errors.New("no escrow held for booking")

	// ErrAlreadySettled occurs when a hold targets a booking whose escrow
	// was already released or refunded.
	ErrAlreadySettled = errors.New("booking escrow already settled")

	// ErrConflict surfaces after a concurrent-update conflict persisted
	// through the coordinator's single transparent retry.
	ErrConflict = errors.New("concurrent escrow operation conflict")
)

// Outcome reports the result of a coordinator operation.
type Outcome struct {
	Booking booking.Booking
	// Transaction is the ledger movement applied; zero when AlreadyApplied.
	Transaction ledger.Transaction
	// AlreadyApplied is set when the payment was already in the requested
	// state and the operation was an idempotent no-op.
	AlreadyApplied bool
}

// Coordinator orchestrates escrow movements against the ledger in lockstep
// with booking state.
type Coordinator interface {
	// Hold debits the client's wallet into escrow for a booking whose
	// payment is still pending.
	Hold(ctx context.Context, bookingID string) (Outcome, error)

	// Release credits held funds to the stylist and completes the booking.
	Release(ctx context.Context, bookingID string) (Outcome, error)

	// Refund credits held funds back to the client and cancels the booking.
	Refund(ctx context.Context, bookingID string) (Outcome, error)

	// Settle dispatches to Release or Refund. It is the entry point used by
	// dispute resolution and is idempotent: a payment already in the target
	// terminal state yields a no-op success. Settling a never-held disputed
	// booking toward the client cancels it without moving funds.
	Settle(ctx context.Context, bookingID string, toStylist bool) (Outcome, error)
}
