package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glowbook/glowbook/internal/funding"
	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/logging"
)

// decliningGateway refuses every payout.
type decliningGateway struct{}

func (decliningGateway) AuthorizeTopUp(context.Context, funding.TopUpAuthorization) (funding.Decision, error) {
	return funding.Decision{}, errors.New("not implemented")
}

func (decliningGateway) SettlePayout(context.Context, string, int64) (funding.Decision, error) {
	return funding.Decision{Approved: false}, nil
}

func pendingPayout(t *testing.T, led ledger.Ledger, owner string, amount int64) ledger.Transaction {
	t.Helper()
	rec, err := led.Record(context.Background(), ledger.Movement{
		OwnerID:     owner,
		Kind:        ledger.KindPayout,
		Amount:      amount,
		Status:      ledger.TxPending,
		ExternalRef: "acct-1",
	})
	if err != nil {
		t.Fatalf("record payout: %v", err)
	}
	return rec
}

func TestProcessBatchSettlesPendingPayout(t *testing.T) {
	led := ledger.NewInMemory("USD")
	ledger.SeedBalance(led, "stylist-1", 5_000)
	rec := pendingPayout(t, led, "stylist-1", 3_000)

	w := NewWorker(led, funding.StaticGateway{}, nil, logging.Discard(), time.Second)
	if err := w.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	pending, _ := led.PendingPayouts(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("payout still pending: %+v", pending)
	}

	txs, _ := led.Transactions(context.Background(), "stylist-1", ledger.Filter{Kind: ledger.KindPayout}, ledger.Page{})
	if len(txs) != 1 || txs[0].ID != rec.ID {
		t.Fatalf("unexpected payout log: %+v", txs)
	}
	if txs[0].Status != ledger.TxCompleted {
		t.Fatalf("expected completed, got %s", txs[0].Status)
	}
	if txs[0].ExternalRef == "" || txs[0].ExternalRef == "acct-1" {
		t.Fatalf("gateway reference not recorded: %q", txs[0].ExternalRef)
	}

	wallet, _ := led.Balance(context.Background(), "stylist-1")
	if wallet.Balance != 2_000 {
		t.Fatalf("settlement must not touch the balance again, got %d", wallet.Balance)
	}
}

func TestProcessBatchReversesDeclinedPayout(t *testing.T) {
	led := ledger.NewInMemory("USD")
	ledger.SeedBalance(led, "stylist-1", 5_000)
	rec := pendingPayout(t, led, "stylist-1", 3_000)

	w := NewWorker(led, decliningGateway{}, nil, logging.Discard(), time.Second)
	if err := w.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	txs, _ := led.Transactions(context.Background(), "stylist-1", ledger.Filter{Kind: ledger.KindPayout}, ledger.Page{})
	if len(txs) != 1 || txs[0].Status != ledger.TxFailed {
		t.Fatalf("expected failed payout, got %+v", txs)
	}

	// The declined amount comes back as a credit referencing the payout.
	credits, _ := led.Transactions(context.Background(), "stylist-1", ledger.Filter{Kind: ledger.KindCredit}, ledger.Page{})
	if len(credits) != 1 || credits[0].Amount != 3_000 || credits[0].ExternalRef != rec.ID {
		t.Fatalf("missing reversal credit: %+v", credits)
	}

	wallet, _ := led.Balance(context.Background(), "stylist-1")
	if wallet.Balance != 5_000 {
		t.Fatalf("expected funds returned, balance=%d", wallet.Balance)
	}
}

func TestProcessBatchIsIdempotentAcrossRuns(t *testing.T) {
	led := ledger.NewInMemory("USD")
	ledger.SeedBalance(led, "stylist-1", 5_000)
	pendingPayout(t, led, "stylist-1", 1_000)

	w := NewWorker(led, funding.StaticGateway{}, nil, logging.Discard(), time.Second)
	for i := 0; i < 3; i++ {
		if err := w.ProcessBatch(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	wallet, _ := led.Balance(context.Background(), "stylist-1")
	if wallet.Balance != 4_000 {
		t.Fatalf("repeated runs changed the balance: %d", wallet.Balance)
	}
}
