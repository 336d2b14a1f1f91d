// Package dispute applies administrative decisions to disputed bookings.
//
// The decision and the money movement are deliberately not one atomic
// unit: the resolution history is persisted first, so an adjudication is
// never lost to a transient settlement failure. A failed settlement leaves
// the booking disputed and surfaces ErrEscrowReleaseFailed; retrying the
// resolution settles idempotently.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/escrow"
	"github.com/glowbook/glowbook/internal/notification"
)

var (
	// ErrAlreadyResolved occurs when a resolution targets a booking that
	// already left the disputed status.
	ErrAlreadyResolved = errors.New("dispute already resolved")

	// ErrNotDisputed occurs when a resolution targets a booking that was
	// never disputed.
	ErrNotDisputed = errors.New("booking is not disputed")

	// ErrEscrowReleaseFailed indicates a partial success: the decision is
	// recorded but the settlement did not apply. Operators retry the
	// resolution; re-adjudication is not required.
	ErrEscrowReleaseFailed = errors.New("escrow settlement failed after decision was recorded")
)

// Resolution is the administrative outcome of a dispute.
type Resolution string

const (
	// ResolutionConfirmed upholds the service: funds release to the stylist.
	ResolutionConfirmed Resolution = "confirmed"
	// ResolutionCancelled voids the booking: funds refund to the client.
	ResolutionCancelled Resolution = "cancelled"
)

// Actor identifies the admin applying a resolution.
type Actor struct {
	ID   string
	Name string
}

// Resolver drives the escrow coordinator for the disputed branch of the
// booking lifecycle.
type Resolver struct {
	bookings booking.Repository
	escrow   escrow.Coordinator
	notifier notification.Notifier
}

// NewResolver builds a dispute resolver.
func NewResolver(bookings booking.Repository, coordinator escrow.Coordinator, notifier notification.Notifier) *Resolver {
	return &Resolver{bookings: bookings, escrow: coordinator, notifier: notifier}
}

// Resolve records the decision on the booking's dispute history and then
// settles the escrow. The history append is durable even if settlement
// fails; only the settlement step advances the booking out of disputed.
func (r *Resolver) Resolve(ctx context.Context, bookingID string, resolution Resolution, by Actor, notes string) (booking.Booking, error) {
	var target booking.Status
	switch resolution {
	case ResolutionConfirmed:
		target = booking.StatusCompleted
	case ResolutionCancelled:
		target = booking.StatusCancelled
	default:
		return booking.Booking{}, fmt.Errorf("unknown resolution %q", resolution)
	}

	b, err := r.bookings.Get(ctx, bookingID)
	if err != nil {
		return booking.Booking{}, err
	}
	if b.Status != booking.StatusDisputed {
		if len(b.DisputeHistory) > 0 {
			return booking.Booking{}, ErrAlreadyResolved
		}
		return booking.Booking{}, ErrNotDisputed
	}

	b.DisputeHistory = append(b.DisputeHistory, booking.DisputeHistoryItem{
		ResolverID:      by.ID,
		ResolverName:    by.Name,
		Resolution:      string(resolution),
		Notes:           notes,
		ResultingStatus: target,
		CreatedAt:       time.Now().UTC(),
	})
	b.DisputeResolution = string(resolution)
	b, err = r.bookings.Update(ctx, b)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("record resolution: %w", err)
	}

	out, err := r.escrow.Settle(ctx, bookingID, resolution == ResolutionConfirmed)
	if err != nil {
		return b, fmt.Errorf("%w: %w", ErrEscrowReleaseFailed, err)
	}

	r.notify(ctx, out.Booking, resolution)
	return out.Booking, nil
}

func (r *Resolver) notify(ctx context.Context, b booking.Booking, resolution Resolution) {
	if r.notifier == nil {
		return
	}
	body := fmt.Sprintf("Dispute on booking %s resolved: %s", b.ID, resolution)
	_ = r.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindDisputeResolved,
		Destination: b.ClientID,
		Body:        body,
	})
	_ = r.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindDisputeResolved,
		Destination: b.StylistID,
		Body:        body,
	})
}
