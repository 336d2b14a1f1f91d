package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingTerminal occurs when an operation targets a booking already
	// in a terminal status.
	ErrBookingTerminal = errors.New("booking is in a terminal status")

	// ErrAlreadyDisputed occurs when a dispute is raised on a booking that
	// is already disputed.
	ErrAlreadyDisputed = errors.New("booking already disputed")
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDisputed   Status = "disputed"
)

// Valid reports whether the status belongs to the closed set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus tracks where the booking's funds currently sit.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentHeld     PaymentStatus = "held_in_escrow"
	PaymentReleased PaymentStatus = "released_to_stylist"
	PaymentRefunded PaymentStatus = "refunded_to_client"
)

// Valid reports whether the payment status belongs to the closed set.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentHeld, PaymentReleased, PaymentRefunded:
		return true
	}
	return false
}

// transitions is the single source of truth for legal status moves. The
// disputed branch is reachable only through Dispute, and left only through
// the dispute resolver; the service layer refuses disputed sources so the
// resolver path stays the sole exit.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusDisputed:   {StatusCompleted, StatusCancelled},
}

// IllegalTransitionError reports a rejected status move, naming both ends.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition from %q to %q", e.From, e.To)
}

// ErrIllegalTransition matches any IllegalTransitionError via errors.Is.
var ErrIllegalTransition = errors.New("illegal booking transition")

// Is lets errors.Is treat every illegal transition as ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition mutates the booking's status after validating the move. It is
// the only place booking status changes; callers never assign the field.
func Transition(b *Booking, to Status) error {
	if !CanTransition(b.Status, to) {
		return &IllegalTransitionError{From: b.Status, To: to}
	}
	b.Status = to
	return nil
}

// Dispute moves a non-terminal booking into the disputed status, recording
// the reason. This is the side channel outside the transition table.
func Dispute(b *Booking, reason string) error {
	if b.Status.Terminal() {
		return ErrBookingTerminal
	}
	if b.Status == StatusDisputed {
		return ErrAlreadyDisputed
	}
	b.Status = StatusDisputed
	b.DisputeReason = reason
	return nil
}
