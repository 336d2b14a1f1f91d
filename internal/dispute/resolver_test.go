package dispute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/escrow"
	"github.com/glowbook/glowbook/internal/ledger"
)

func seedDisputed(t *testing.T, repo booking.Repository, payment booking.PaymentStatus) booking.Booking {
	t.Helper()
	now := time.Now().UTC()
	b := booking.Booking{
		ID:            "bk-1",
		ClientID:      "client-1",
		StylistID:     "stylist-1",
		ServiceID:     "svc-1",
		ServiceName:   "Cut and color",
		ServicePrice:  6_000,
		ScheduledDate: now.Truncate(24 * time.Hour),
		TimeSlot:      "14:00",
		Status:        booking.StatusDisputed,
		PaymentStatus: payment,
		DisputeReason: "service not rendered",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

// failingCoordinator simulates a settlement outage.
type failingCoordinator struct{}

func (failingCoordinator) Hold(context.Context, string) (escrow.Outcome, error) {
	return escrow.Outcome{}, errors.New("unavailable")
}
func (failingCoordinator) Release(context.Context, string) (escrow.Outcome, error) {
	return escrow.Outcome{}, errors.New("unavailable")
}
func (failingCoordinator) Refund(context.Context, string) (escrow.Outcome, error) {
	return escrow.Outcome{}, errors.New("unavailable")
}
func (failingCoordinator) Settle(context.Context, string, bool) (escrow.Outcome, error) {
	return escrow.Outcome{}, errors.New("unavailable")
}

func TestResolveConfirmedReleasesToStylist(t *testing.T) {
	repo := booking.NewMemoryRepository()
	led := ledger.NewInMemory("USD")
	seedDisputed(t, repo, booking.PaymentHeld)
	resolver := NewResolver(repo, escrow.NewMemoryCoordinator(led, repo), nil)

	b, err := resolver.Resolve(context.Background(), "bk-1", ResolutionConfirmed, Actor{ID: "admin-1", Name: "Dana"}, "evidence checks out")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Status != booking.StatusCompleted || b.PaymentStatus != booking.PaymentReleased {
		t.Fatalf("unexpected state: %s/%s", b.Status, b.PaymentStatus)
	}
	if len(b.DisputeHistory) != 1 {
		t.Fatalf("expected 1 history item, got %d", len(b.DisputeHistory))
	}
	item := b.DisputeHistory[0]
	if item.ResolverID != "admin-1" || item.Resolution != "confirmed" || item.ResultingStatus != booking.StatusCompleted {
		t.Fatalf("unexpected history item: %+v", item)
	}
	if b.DisputeResolution != "confirmed" {
		t.Fatalf("resolution not recorded: %q", b.DisputeResolution)
	}

	w, _ := led.Balance(context.Background(), "stylist-1")
	if w.Balance != 6_000 {
		t.Fatalf("stylist not paid: %d", w.Balance)
	}
}

func TestResolveCancelledRefundsClient(t *testing.T) {
	repo := booking.NewMemoryRepository()
	led := ledger.NewInMemory("USD")
	seedDisputed(t, repo, booking.PaymentHeld)
	resolver := NewResolver(repo, escrow.NewMemoryCoordinator(led, repo), nil)

	b, err := resolver.Resolve(context.Background(), "bk-1", ResolutionCancelled, Actor{ID: "admin-1"}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Status != booking.StatusCancelled || b.PaymentStatus != booking.PaymentRefunded {
		t.Fatalf("unexpected state: %s/%s", b.Status, b.PaymentStatus)
	}

	w, _ := led.Balance(context.Background(), "client-1")
	if w.Balance != 6_000 {
		t.Fatalf("client not refunded: %d", w.Balance)
	}
}

func TestResolveCancelledNeverHeldBooking(t *testing.T) {
	repo := booking.NewMemoryRepository()
	led := ledger.NewInMemory("USD")
	seedDisputed(t, repo, booking.PaymentPending)
	resolver := NewResolver(repo, escrow.NewMemoryCoordinator(led, repo), nil)

	b, err := resolver.Resolve(context.Background(), "bk-1", ResolutionCancelled, Actor{ID: "admin-1"}, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Status != booking.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", b.Status)
	}
	if b.PaymentStatus != booking.PaymentPending {
		t.Fatalf("no funds were held, payment status must stay pending: %s", b.PaymentStatus)
	}
}

func TestResolveRejectsUnknownResolution(t *testing.T) {
	repo := booking.NewMemoryRepository()
	resolver := NewResolver(repo, failingCoordinator{}, nil)
	if _, err := resolver.Resolve(context.Background(), "bk-1", "split", Actor{}, ""); err == nil {
		t.Fatal("expected unknown resolution to be rejected")
	}
}

func TestResolveAlreadyResolvedAndNeverDisputed(t *testing.T) {
	ctx := context.Background()
	repo := booking.NewMemoryRepository()
	led := ledger.NewInMemory("USD")
	seedDisputed(t, repo, booking.PaymentHeld)
	resolver := NewResolver(repo, escrow.NewMemoryCoordinator(led, repo), nil)

	if _, err := resolver.Resolve(ctx, "bk-1", ResolutionConfirmed, Actor{ID: "admin-1"}, ""); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "bk-1", ResolutionConfirmed, Actor{ID: "admin-2"}, ""); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	// A booking that was never disputed gets a different error.
	plain := booking.Booking{ID: "bk-2", ClientID: "c", StylistID: "s", Status: booking.StatusConfirmed, PaymentStatus: booking.PaymentPending}
	if err := repo.Create(ctx, plain); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "bk-2", ResolutionCancelled, Actor{ID: "admin-1"}, ""); !errors.Is(err, ErrNotDisputed) {
		t.Fatalf("expected ErrNotDisputed, got %v", err)
	}
}

func TestResolveDecisionSurvivesSettlementFailure(t *testing.T) {
	ctx := context.Background()
	repo := booking.NewMemoryRepository()
	seedDisputed(t, repo, booking.PaymentHeld)
	resolver := NewResolver(repo, failingCoordinator{}, nil)

	_, err := resolver.Resolve(ctx, "bk-1", ResolutionConfirmed, Actor{ID: "admin-1"}, "")
	if !errors.Is(err, ErrEscrowReleaseFailed) {
		t.Fatalf("expected ErrEscrowReleaseFailed, got %v", err)
	}

	// The decision is durable even though settlement failed.
	stored, getErr := repo.Get(ctx, "bk-1")
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if stored.Status != booking.StatusDisputed {
		t.Fatalf("booking must stay disputed, got %s", stored.Status)
	}
	if len(stored.DisputeHistory) != 1 || stored.DisputeResolution != "confirmed" {
		t.Fatalf("decision not recorded: history=%d resolution=%q", len(stored.DisputeHistory), stored.DisputeResolution)
	}

	// Retrying with a healthy coordinator finishes the settlement and
	// appends a second history item.
	led := ledger.NewInMemory("USD")
	retry := NewResolver(repo, escrow.NewMemoryCoordinator(led, repo), nil)
	b, err := retry.Resolve(ctx, "bk-1", ResolutionConfirmed, Actor{ID: "admin-1"}, "retry")
	if err != nil {
		t.Fatalf("retry resolve: %v", err)
	}
	if b.Status != booking.StatusCompleted {
		t.Fatalf("retry did not complete booking: %s", b.Status)
	}
	if len(b.DisputeHistory) != 2 {
		t.Fatalf("expected 2 history items after retry, got %d", len(b.DisputeHistory))
	}
}
