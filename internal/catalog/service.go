package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service manages stylist offerings.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to publish an offering.
type CreateInput struct {
	StylistID   string
	StylistName string
	Name        string
	Price       int64
	DurationMin int
	Slots       []string
}

// Create validates and publishes an offering.
func (s *Service) Create(ctx context.Context, input CreateInput) (Offering, error) {
	if input.Name == "" {
		return Offering{}, fmt.Errorf("offering name is required")
	}
	if input.Price <= 0 {
		return Offering{}, fmt.Errorf("price must be positive")
	}
	if input.DurationMin <= 0 {
		return Offering{}, fmt.Errorf("duration must be positive")
	}
	if len(input.Slots) == 0 {
		return Offering{}, fmt.Errorf("at least one bookable slot is required")
	}
	for _, slot := range input.Slots {
		if _, err := time.Parse("15:04", slot); err != nil {
			return Offering{}, fmt.Errorf("invalid slot %q: expected HH:MM", slot)
		}
	}

	o := Offering{
		ID:          uuid.NewString(),
		StylistID:   input.StylistID,
		StylistName: input.StylistName,
		Name:        input.Name,
		Price:       input.Price,
		DurationMin: input.DurationMin,
		Slots:       input.Slots,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return Offering{}, err
	}
	return o, nil
}

// Get fetches an offering.
func (s *Service) Get(ctx context.Context, id string) (Offering, error) {
	return s.repo.Get(ctx, id)
}

// ListByStylist returns the stylist's active offerings.
func (s *Service) ListByStylist(ctx context.Context, stylistID string) ([]Offering, error) {
	return s.repo.ListByStylist(ctx, stylistID)
}
