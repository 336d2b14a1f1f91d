package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowbook/glowbook/internal/catalog"
)

var (
	// ErrSlotUnavailable occurs when the stylist does not offer the
	// requested slot, or the date is in the past.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotAlreadyBooked occurs when a live booking already occupies the
	// stylist's slot.
	ErrSlotAlreadyBooked = errors.New("slot already booked")
)

// Service owns booking creation and the non-monetary lifecycle. Monetary
// transitions (escrow hold, release, refund) go through the escrow
// coordinator instead.
type Service struct {
	repo    Repository
	catalog *catalog.Service
}

// NewService builds a booking service.
func NewService(repo Repository, catalogSvc *catalog.Service) *Service {
	return &Service{repo: repo, catalog: catalogSvc}
}

// CreateInput captures a booking request. Service name and price are
// resolved from the catalog, never taken from the caller.
type CreateInput struct {
	ClientID    string
	ClientName  string
	ClientEmail string
	ClientPhone string
	OfferingID  string
	Date        time.Time
	TimeSlot    string
}

// Create validates slot availability and stores a pending booking.
func (s *Service) Create(ctx context.Context, input CreateInput) (Booking, error) {
	offering, err := s.catalog.Get(ctx, input.OfferingID)
	if err != nil {
		return Booking{}, err
	}

	day := input.Date.UTC().Truncate(24 * time.Hour)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) || !offering.OffersSlot(input.TimeSlot) {
		return Booking{}, ErrSlotUnavailable
	}

	taken, err := s.repo.SlotTaken(ctx, offering.StylistID, day, input.TimeSlot)
	if err != nil {
		return Booking{}, err
	}
	if taken {
		return Booking{}, ErrSlotAlreadyBooked
	}

	now := time.Now().UTC()
	b := Booking{
		ID:              uuid.NewString(),
		ClientID:        input.ClientID,
		ClientName:      input.ClientName,
		ClientEmail:     input.ClientEmail,
		ClientPhone:     input.ClientPhone,
		StylistID:       offering.StylistID,
		StylistName:     offering.StylistName,
		ServiceID:       offering.ID,
		ServiceName:     offering.Name,
		ServicePrice:    offering.Price,
		ServiceDuration: offering.DurationMin,
		ScheduledDate:   day,
		TimeSlot:        input.TimeSlot,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// Get fetches a booking.
func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	return s.repo.Get(ctx, id)
}

// ListByClient returns the client's bookings newest-first.
func (s *Service) ListByClient(ctx context.Context, clientID string, limit int) ([]Booking, error) {
	return s.repo.ListByClient(ctx, clientID, limit)
}

// ListByStylist returns the stylist's bookings newest-first.
func (s *Service) ListByStylist(ctx context.Context, stylistID string, limit int) ([]Booking, error) {
	return s.repo.ListByStylist(ctx, stylistID, limit)
}

// TransitionStatus applies a non-monetary status move. Disputed bookings
// are frozen here; only the dispute resolver moves them. A stale-version
// conflict is retried once before surfacing.
func (s *Service) TransitionStatus(ctx context.Context, id string, target Status) (Booking, error) {
	if !target.Valid() {
		return Booking{}, fmt.Errorf("unknown booking status %q", target)
	}
	b, err := s.transitionOnce(ctx, id, target)
	if errors.Is(err, ErrStaleVersion) {
		b, err = s.transitionOnce(ctx, id, target)
	}
	return b, err
}

func (s *Service) transitionOnce(ctx context.Context, id string, target Status) (Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.Status == StatusDisputed {
		return Booking{}, &IllegalTransitionError{From: b.Status, To: target}
	}
	if err := Transition(&b, target); err != nil {
		return Booking{}, err
	}
	return s.repo.Update(ctx, b)
}

// RaiseDispute freezes a non-terminal booking for administrative review.
func (s *Service) RaiseDispute(ctx context.Context, id, reason string) (Booking, error) {
	b, err := s.disputeOnce(ctx, id, reason)
	if errors.Is(err, ErrStaleVersion) {
		b, err = s.disputeOnce(ctx, id, reason)
	}
	return b, err
}

func (s *Service) disputeOnce(ctx context.Context, id, reason string) (Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if err := Dispute(&b, reason); err != nil {
		return Booking{}, err
	}
	return s.repo.Update(ctx, b)
}
