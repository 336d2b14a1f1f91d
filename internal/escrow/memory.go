package escrow

import (
	"context"
	"fmt"
	"sync"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/ledger"
)

// memoryCoordinator composes the in-memory ledger and booking repository.
// A per-booking mutex serializes the read-decide-write sequence; if the
// booking write fails after the ledger moved funds, the movement is
// compensated with the inverse entry so the two stay consistent.
type memoryCoordinator struct {
	ledger   ledger.Ledger
	bookings booking.Repository
	locks    sync.Map
}

// NewMemoryCoordinator builds the dev/test escrow coordinator.
func NewMemoryCoordinator(led ledger.Ledger, bookings booking.Repository) Coordinator {
	return &memoryCoordinator{ledger: led, bookings: bookings}
}

func (c *memoryCoordinator) bookingLock(id string) *sync.Mutex {
	v, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (c *memoryCoordinator) Hold(ctx context.Context, bookingID string) (Outcome, error) {
	mu := c.bookingLock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	b, err := c.bookings.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	if b.Status.Terminal() {
		return Outcome{}, booking.ErrBookingTerminal
	}
	switch b.PaymentStatus {
	case booking.PaymentHeld:
		return Outcome{Booking: b, AlreadyApplied: true}, nil
	case booking.PaymentReleased, booking.PaymentRefunded:
		return Outcome{}, ErrAlreadySettled
	}

	rec, err := c.ledger.Record(ctx, ledger.Movement{
		OwnerID:     b.ClientID,
		Kind:        ledger.KindEscrowHold,
		Amount:      b.ServicePrice,
		Description: fmt.Sprintf("Escrow hold for %s", b.ServiceName),
		BookingID:   b.ID,
	})
	if err != nil {
		return Outcome{}, err
	}

	b.PaymentStatus = booking.PaymentHeld
	updated, err := c.bookings.Update(ctx, b)
	if err != nil {
		c.compensate(ctx, b.ClientID, ledger.KindRefund, b.ServicePrice, b.ID)
		return Outcome{}, err
	}
	return Outcome{Booking: updated, Transaction: rec}, nil
}

func (c *memoryCoordinator) Release(ctx context.Context, bookingID string) (Outcome, error) {
	mu := c.bookingLock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	b, err := c.bookings.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	switch b.PaymentStatus {
	case booking.PaymentReleased:
		return Outcome{Booking: b, AlreadyApplied: true}, nil
	case booking.PaymentHeld:
	default:
		return Outcome{}, ErrNoEscrowHeld
	}
	if err := booking.Transition(&b, booking.StatusCompleted); err != nil {
		return Outcome{}, err
	}

	rec, err := c.ledger.Record(ctx, ledger.Movement{
		OwnerID:     b.StylistID,
		Kind:        ledger.KindEscrowRelease,
		Amount:      b.ServicePrice,
		Description: fmt.Sprintf("Payment for %s", b.ServiceName),
		BookingID:   b.ID,
	})
	if err != nil {
		return Outcome{}, err
	}

	b.PaymentStatus = booking.PaymentReleased
	updated, err := c.bookings.Update(ctx, b)
	if err != nil {
		c.compensate(ctx, b.StylistID, ledger.KindDebit, b.ServicePrice, b.ID)
		return Outcome{}, err
	}
	return Outcome{Booking: updated, Transaction: rec}, nil
}

func (c *memoryCoordinator) Refund(ctx context.Context, bookingID string) (Outcome, error) {
	return c.refund(ctx, bookingID, false)
}

func (c *memoryCoordinator) Settle(ctx context.Context, bookingID string, toStylist bool) (Outcome, error) {
	if toStylist {
		return c.Release(ctx, bookingID)
	}
	return c.refund(ctx, bookingID, true)
}

// refund cancels the booking and returns held funds to the client. When
// allowUnheld is set (the dispute settlement path), a booking whose
// payment was never held is cancelled without a ledger movement.
func (c *memoryCoordinator) refund(ctx context.Context, bookingID string, allowUnheld bool) (Outcome, error) {
	mu := c.bookingLock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	b, err := c.bookings.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	switch b.PaymentStatus {
	case booking.PaymentRefunded:
		return Outcome{Booking: b, AlreadyApplied: true}, nil
	case booking.PaymentHeld:
	case booking.PaymentPending:
		if !allowUnheld {
			return Outcome{}, ErrNoEscrowHeld
		}
	default:
		return Outcome{}, ErrNoEscrowHeld
	}
	if err := booking.Transition(&b, booking.StatusCancelled); err != nil {
		return Outcome{}, err
	}

	var rec ledger.Transaction
	if b.PaymentStatus == booking.PaymentHeld {
		rec, err = c.ledger.Record(ctx, ledger.Movement{
			OwnerID:     b.ClientID,
			Kind:        ledger.KindRefund,
			Amount:      b.ServicePrice,
			Description: fmt.Sprintf("Refund for %s", b.ServiceName),
			BookingID:   b.ID,
		})
		if err != nil {
			return Outcome{}, err
		}
		b.PaymentStatus = booking.PaymentRefunded
	}

	updated, err := c.bookings.Update(ctx, b)
	if err != nil {
		if rec.ID != "" {
			c.compensate(ctx, b.ClientID, ledger.KindDebit, b.ServicePrice, b.ID)
		}
		return Outcome{}, err
	}
	return Outcome{Booking: updated, Transaction: rec}, nil
}

// compensate reverses a ledger movement after a failed booking write.
// Best effort: the in-memory backend has no cross-store transaction.
func (c *memoryCoordinator) compensate(ctx context.Context, ownerID string, kind ledger.Kind, amount int64, bookingID string) {
	_, _ = c.ledger.Record(ctx, ledger.Movement{
		OwnerID:     ownerID,
		Kind:        kind,
		Amount:      amount,
		Description: "Compensating entry after failed booking update",
		BookingID:   bookingID,
	})
}
