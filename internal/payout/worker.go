// Package payout settles pending payout transactions against the payment
// gateway in the background. Wallets are debited when the payout is
// requested, so the worker only finalizes the transaction status and
// credits the wallet back when the gateway declines.
package payout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowbook/glowbook/internal/funding"
	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/notification"
)

const defaultBatchSize = 25

// Worker polls the ledger for pending payouts and settles them.
type Worker struct {
	ledger    ledger.Ledger
	gateway   funding.Gateway
	notifier  notification.Notifier
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewWorker builds a payout worker polling at the given interval.
func NewWorker(led ledger.Ledger, gateway funding.Gateway, notifier notification.Notifier, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if gateway == nil {
		gateway = funding.StaticGateway{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		ledger:    led,
		gateway:   gateway,
		notifier:  notifier,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
}

// Run processes pending payouts until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("payout worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("payout worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("payout batch failed", "error", err)
			}
		}
	}
}

// ProcessBatch settles up to one batch of pending payouts. Exposed so
// tests can drive the worker without the ticker.
func (w *Worker) ProcessBatch(ctx context.Context) error {
	pending, err := w.ledger.PendingPayouts(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending payouts: %w", err)
	}
	for _, tx := range pending {
		if err := w.settle(ctx, tx); err != nil {
			w.logger.Error("payout settlement failed", "transaction_id", tx.ID, "error", err)
		}
	}
	return nil
}

func (w *Worker) settle(ctx context.Context, tx ledger.Transaction) error {
	// Amounts are stored signed; the payout debit is negative.
	amount := -tx.Amount

	decision, err := w.gateway.SettlePayout(ctx, tx.ExternalRef, amount)
	if err != nil || !decision.Approved {
		return w.fail(ctx, tx, amount, err)
	}

	if err := w.ledger.SettlePayout(ctx, tx.ID, ledger.TxCompleted, decision.Reference); err != nil {
		return fmt.Errorf("mark payout completed: %w", err)
	}
	w.logger.Info("payout settled", "transaction_id", tx.ID, "owner_id", tx.OwnerID, "amount", amount)
	w.notify(ctx, tx.OwnerID, fmt.Sprintf("Your payout of %d %s has been sent.", amount, tx.Currency))
	return nil
}

// fail finalizes a declined payout and returns the funds to the wallet.
func (w *Worker) fail(ctx context.Context, tx ledger.Transaction, amount int64, cause error) error {
	if err := w.ledger.SettlePayout(ctx, tx.ID, ledger.TxFailed, ""); err != nil {
		return fmt.Errorf("mark payout failed: %w", err)
	}
	if _, err := w.ledger.Record(ctx, ledger.Movement{
		OwnerID:     tx.OwnerID,
		Kind:        ledger.KindCredit,
		Amount:      amount,
		Description: "Payout reversal",
		ExternalRef: tx.ID,
	}); err != nil {
		return fmt.Errorf("reverse failed payout %s: %w", tx.ID, err)
	}
	w.logger.Warn("payout declined, funds returned", "transaction_id", tx.ID, "owner_id", tx.OwnerID, "error", cause)
	w.notify(ctx, tx.OwnerID, fmt.Sprintf("Your payout of %d %s could not be sent and was returned to your wallet.", amount, tx.Currency))
	return nil
}

func (w *Worker) notify(ctx context.Context, ownerID, body string) {
	if w.notifier == nil {
		return
	}
	_ = w.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindPayoutSettled,
		Destination: ownerID,
		Body:        body,
	})
}
