package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/ledger"
)

// PostgresCoordinator implements Coordinator with one database transaction
// per operation. The booking row is locked first, then the wallet row
// (wallets are locked in lexical owner order should an operation ever touch
// two), and all preconditions are re-checked on the locked rows so a
// decision can never act on stale state.
type PostgresCoordinator struct {
	db       *pgxpool.Pool
	bookings booking.Repository
	currency string
}

// NewPostgresCoordinator builds a Postgres-backed escrow coordinator.
func NewPostgresCoordinator(db *pgxpool.Pool, bookings booking.Repository, currency string) *PostgresCoordinator {
	return &PostgresCoordinator{db: db, bookings: bookings, currency: currency}
}

// lockedBooking is the subset of booking state the coordinator decides on,
// read under FOR UPDATE.
type lockedBooking struct {
	ID            uuid.UUID
	ClientID      string
	StylistID     string
	ServiceName   string
	ServicePrice  int64
	Status        booking.Status
	PaymentStatus booking.PaymentStatus
}

// Hold debits the client's wallet into escrow.
func (c *PostgresCoordinator) Hold(ctx context.Context, bookingID string) (Outcome, error) {
	return c.run(ctx, bookingID, func(ctx context.Context, tx pgx.Tx, b lockedBooking) (ledger.Transaction, bool, error) {
		if b.Status.Terminal() {
			return ledger.Transaction{}, false, booking.ErrBookingTerminal
		}
		switch b.PaymentStatus {
		case booking.PaymentHeld:
			return ledger.Transaction{}, true, nil
		case booking.PaymentReleased, booking.PaymentRefunded:
			return ledger.Transaction{}, false, ErrAlreadySettled
		}

		rec, err := ledger.RecordInTx(ctx, tx, ledger.Movement{
			OwnerID:     b.ClientID,
			Kind:        ledger.KindEscrowHold,
			Amount:      b.ServicePrice,
			Description: fmt.Sprintf("Escrow hold for %s", b.ServiceName),
			BookingID:   b.ID.String(),
		}, c.currency)
		if err != nil {
			return ledger.Transaction{}, false, err
		}

		if err := updateBookingInTx(ctx, tx, b.ID, b.Status, booking.PaymentHeld); err != nil {
			return ledger.Transaction{}, false, err
		}
		return rec, false, nil
	})
}

// Release credits held funds to the stylist and completes the booking.
func (c *PostgresCoordinator) Release(ctx context.Context, bookingID string) (Outcome, error) {
	return c.run(ctx, bookingID, func(ctx context.Context, tx pgx.Tx, b lockedBooking) (ledger.Transaction, bool, error) {
		switch b.PaymentStatus {
		case booking.PaymentReleased:
			return ledger.Transaction{}, true, nil
		case booking.PaymentHeld:
		default:
			return ledger.Transaction{}, false, ErrNoEscrowHeld
		}

		if !booking.CanTransition(b.Status, booking.StatusCompleted) {
			return ledger.Transaction{}, false, &booking.IllegalTransitionError{From: b.Status, To: booking.StatusCompleted}
		}

		rec, err := ledger.RecordInTx(ctx, tx, ledger.Movement{
			OwnerID:     b.StylistID,
			Kind:        ledger.KindEscrowRelease,
			Amount:      b.ServicePrice,
			Description: fmt.Sprintf("Payment for %s", b.ServiceName),
			BookingID:   b.ID.String(),
		}, c.currency)
		if err != nil {
			return ledger.Transaction{}, false, err
		}

		if err := updateBookingInTx(ctx, tx, b.ID, booking.StatusCompleted, booking.PaymentReleased); err != nil {
			return ledger.Transaction{}, false, err
		}
		return rec, false, nil
	})
}

// Refund credits held funds back to the client and cancels the booking.
func (c *PostgresCoordinator) Refund(ctx context.Context, bookingID string) (Outcome, error) {
	return c.run(ctx, bookingID, func(ctx context.Context, tx pgx.Tx, b lockedBooking) (ledger.Transaction, bool, error) {
		switch b.PaymentStatus {
		case booking.PaymentRefunded:
			return ledger.Transaction{}, true, nil
		case booking.PaymentHeld:
		default:
			return ledger.Transaction{}, false, ErrNoEscrowHeld
		}

		if !booking.CanTransition(b.Status, booking.StatusCancelled) {
			return ledger.Transaction{}, false, &booking.IllegalTransitionError{From: b.Status, To: booking.StatusCancelled}
		}

		rec, err := ledger.RecordInTx(ctx, tx, ledger.Movement{
			OwnerID:     b.ClientID,
			Kind:        ledger.KindRefund,
			Amount:      b.ServicePrice,
			Description: fmt.Sprintf("Refund for %s", b.ServiceName),
			BookingID:   b.ID.String(),
		}, c.currency)
		if err != nil {
			return ledger.Transaction{}, false, err
		}

		if err := updateBookingInTx(ctx, tx, b.ID, booking.StatusCancelled, booking.PaymentRefunded); err != nil {
			return ledger.Transaction{}, false, err
		}
		return rec, false, nil
	})
}

// Settle dispatches to Release or Refund. A never-held disputed booking
// settled toward the client is cancelled without a ledger movement.
func (c *PostgresCoordinator) Settle(ctx context.Context, bookingID string, toStylist bool) (Outcome, error) {
	if toStylist {
		return c.Release(ctx, bookingID)
	}
	return c.run(ctx, bookingID, func(ctx context.Context, tx pgx.Tx, b lockedBooking) (ledger.Transaction, bool, error) {
		switch b.PaymentStatus {
		case booking.PaymentRefunded:
			return ledger.Transaction{}, true, nil
		case booking.PaymentReleased:
			return ledger.Transaction{}, false, ErrNoEscrowHeld
		}

		if !booking.CanTransition(b.Status, booking.StatusCancelled) {
			return ledger.Transaction{}, false, &booking.IllegalTransitionError{From: b.Status, To: booking.StatusCancelled}
		}

		var rec ledger.Transaction
		payment := b.PaymentStatus
		if b.PaymentStatus == booking.PaymentHeld {
			var err error
			rec, err = ledger.RecordInTx(ctx, tx, ledger.Movement{
				OwnerID:     b.ClientID,
				Kind:        ledger.KindRefund,
				Amount:      b.ServicePrice,
				Description: fmt.Sprintf("Refund for %s", b.ServiceName),
				BookingID:   b.ID.String(),
			}, c.currency)
			if err != nil {
				return ledger.Transaction{}, false, err
			}
			payment = booking.PaymentRefunded
		}

		if err := updateBookingInTx(ctx, tx, b.ID, booking.StatusCancelled, payment); err != nil {
			return ledger.Transaction{}, false, err
		}
		return rec, false, nil
	})
}

type operation func(ctx context.Context, tx pgx.Tx, b lockedBooking) (ledger.Transaction, bool, error)

// run executes an operation inside one transaction, retrying once on a
// serialization or deadlock failure before surfacing ErrConflict.
func (c *PostgresCoordinator) run(ctx context.Context, bookingID string, op operation) (Outcome, error) {
	out, err := c.attempt(ctx, bookingID, op)
	if isRetryable(err) {
		out, err = c.attempt(ctx, bookingID, op)
		if isRetryable(err) {
			return Outcome{}, ErrConflict
		}
	}
	return out, err
}

func (c *PostgresCoordinator) attempt(ctx context.Context, bookingID string, op operation) (Outcome, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return Outcome{}, booking.ErrNotFound
	}

	tx, err := c.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var b lockedBooking
	if err := tx.QueryRow(ctx, `SELECT id, client_id, stylist_id, service_name, service_price, status, payment_status
        FROM bookings WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.ClientID, &b.StylistID, &b.ServiceName, &b.ServicePrice, &b.Status, &b.PaymentStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Outcome{}, booking.ErrNotFound
		}
		return Outcome{}, err
	}

	rec, already, err := op(ctx, tx, b)
	if err != nil {
		return Outcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}

	updated, err := c.bookings.Get(ctx, bookingID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Booking: updated, Transaction: rec, AlreadyApplied: already}, nil
}

func updateBookingInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status booking.Status, payment booking.PaymentStatus) error {
	cmd, err := tx.Exec(ctx, `UPDATE bookings SET status = $1, payment_status = $2,
        version = version + 1, updated_at = NOW() WHERE id = $3`,
		string(status), string(payment), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// isRetryable reports whether the error is a serialization failure or
// deadlock that a single retry may clear.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
