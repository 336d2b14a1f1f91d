package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestRecordKeepsBalanceAndLogConsistent(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()

	if _, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindCredit, Amount: 10_000}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindEscrowHold, Amount: 2_500, BookingID: "bk-1"}); err != nil {
		t.Fatalf("hold: %v", err)
	}

	w, err := l.Balance(ctx, "client-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if w.Balance != 7_500 {
		t.Fatalf("expected balance 7500, got %d", w.Balance)
	}

	txs, err := l.Transactions(ctx, "client-1", Filter{}, Page{})
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	// newest-first: hold before credit
	if txs[0].Kind != KindEscrowHold || txs[0].Amount != -2_500 {
		t.Fatalf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].Kind != KindCredit || txs[1].Amount != 10_000 {
		t.Fatalf("unexpected second transaction: %+v", txs[1])
	}
}

func TestRecordInsufficientFunds(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()
	SeedBalance(l, "client-1", 100)

	_, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindEscrowHold, Amount: 500})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, _ := l.Balance(ctx, "client-1")
	if w.Balance != 100 {
		t.Fatalf("failed movement changed balance: %d", w.Balance)
	}
	txs, _ := l.Transactions(ctx, "client-1", Filter{}, Page{})
	if len(txs) != 0 {
		t.Fatalf("failed movement appended to log: %d entries", len(txs))
	}
}

func TestRecordRejectsInactiveWallet(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()
	if _, err := l.EnsureWallet(ctx, "client-1"); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	if err := l.Deactivate(ctx, "client-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindCredit, Amount: 100}); !errors.Is(err, ErrWalletInactive) {
		t.Fatalf("expected ErrWalletInactive, got %v", err)
	}
}

func TestRecordRejectsInvalidMovements(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()
	if _, err := l.Record(ctx, Movement{OwnerID: "a", Kind: "teleport", Amount: 100}); err == nil {
		t.Fatal("expected invalid kind to be rejected")
	}
	if _, err := l.Record(ctx, Movement{OwnerID: "a", Kind: KindCredit, Amount: 0}); err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
	if _, err := l.Record(ctx, Movement{OwnerID: "a", Kind: KindCredit, Amount: -5}); err == nil {
		t.Fatal("expected negative amount to be rejected")
	}
}

func TestTransactionsFilterAndPaging(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()
	SeedBalance(l, "client-1", 100_000)

	for i := 0; i < 5; i++ {
		if _, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindCredit, Amount: 10}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	if _, err := l.Record(ctx, Movement{OwnerID: "client-1", Kind: KindEscrowHold, Amount: 50, BookingID: "bk-9"}); err != nil {
		t.Fatalf("hold: %v", err)
	}

	byKind, err := l.Transactions(ctx, "client-1", Filter{Kind: KindEscrowHold}, Page{})
	if err != nil {
		t.Fatalf("filter by kind: %v", err)
	}
	if len(byKind) != 1 || byKind[0].BookingID != "bk-9" {
		t.Fatalf("unexpected kind filter result: %+v", byKind)
	}

	byBooking, err := l.Transactions(ctx, "client-1", Filter{BookingID: "bk-9"}, Page{})
	if err != nil {
		t.Fatalf("filter by booking: %v", err)
	}
	if len(byBooking) != 1 {
		t.Fatalf("expected 1 booking-scoped entry, got %d", len(byBooking))
	}

	page, err := l.Transactions(ctx, "client-1", Filter{}, Page{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
}

func TestPendingPayoutsAndSettle(t *testing.T) {
	l := NewInMemory("USD")
	ctx := context.Background()
	SeedBalance(l, "stylist-1", 5_000)

	rec, err := l.Record(ctx, Movement{OwnerID: "stylist-1", Kind: KindPayout, Amount: 3_000, Status: TxPending, ExternalRef: "acct-99"})
	if err != nil {
		t.Fatalf("payout: %v", err)
	}

	w, _ := l.Balance(ctx, "stylist-1")
	if w.Balance != 2_000 {
		t.Fatalf("payout must debit at record time, balance=%d", w.Balance)
	}

	pending, err := l.PendingPayouts(ctx, 10)
	if err != nil {
		t.Fatalf("pending payouts: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != rec.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	if err := l.SettlePayout(ctx, rec.ID, TxCompleted, "ref-1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	pending, _ = l.PendingPayouts(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("settled payout still pending: %+v", pending)
	}

	// Settling twice must fail: the pending row is gone.
	if err := l.SettlePayout(ctx, rec.ID, TxCompleted, "ref-2"); err == nil {
		t.Fatal("expected second settle to fail")
	}
}
