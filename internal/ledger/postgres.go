package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultCurrency = "USD"

// PostgresLedger persists wallets and the transaction log in PostgreSQL.
// Every movement runs as one transaction holding a row lock on the wallet,
// so the balance and the log can never diverge.
type PostgresLedger struct {
	db       *pgxpool.Pool
	currency string
}

// NewPostgresLedger constructs a Postgres-backed ledger.
func NewPostgresLedger(db *pgxpool.Pool, currency string) *PostgresLedger {
	if currency == "" {
		currency = defaultCurrency
	}
	return &PostgresLedger{db: db, currency: currency}
}

// EnsureWallet lazily creates a zero-balance wallet for the owner.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse owner id: %w", err)
	}
	_, err = l.db.Exec(ctx, `INSERT INTO wallets (owner_id, balance, currency, active, created_at)
        VALUES ($1, 0, $2, TRUE, $3) ON CONFLICT (owner_id) DO NOTHING`,
		owner, l.currency, time.Now().UTC())
	if err != nil {
		return Wallet{}, err
	}
	return l.fetchWallet(ctx, owner)
}

// Balance returns the wallet, creating it lazily if absent.
func (l *PostgresLedger) Balance(ctx context.Context, ownerID string) (Wallet, error) {
	return l.EnsureWallet(ctx, ownerID)
}

// Record applies the movement and appends the transaction in one database
// transaction. The wallet row is locked for the duration so the balance
// check and the update cannot race a concurrent movement.
func (l *PostgresLedger) Record(ctx context.Context, mv Movement) (Transaction, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rec, err := RecordInTx(ctx, tx, mv, l.currency)
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

// RecordInTx applies a movement inside an already-open transaction. The
// escrow coordinator uses it to couple the ledger write with the booking
// write under a single commit.
func RecordInTx(ctx context.Context, tx pgx.Tx, mv Movement, currency string) (Transaction, error) {
	if !mv.Kind.Valid() {
		return Transaction{}, fmt.Errorf("invalid movement kind %q", mv.Kind)
	}
	if mv.Amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive")
	}
	owner, err := uuid.Parse(mv.OwnerID)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse owner id: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallets (owner_id, balance, currency, active, created_at)
        VALUES ($1, 0, $2, TRUE, $3) ON CONFLICT (owner_id) DO NOTHING`,
		owner, currency, time.Now().UTC()); err != nil {
		return Transaction{}, err
	}

	var (
		balance int64
		active  bool
	)
	if err := tx.QueryRow(ctx, `SELECT balance, active FROM wallets WHERE owner_id = $1 FOR UPDATE`, owner).
		Scan(&balance, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrWalletNotFound
		}
		return Transaction{}, err
	}
	if !active {
		return Transaction{}, ErrWalletInactive
	}

	signed := mv.Amount
	if mv.Kind.Reduces() {
		signed = -mv.Amount
		if balance < mv.Amount {
			return Transaction{}, fmt.Errorf("%w: required %d, available %d", ErrInsufficientFunds, mv.Amount, balance)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE owner_id = $2`, signed, owner); err != nil {
		return Transaction{}, err
	}

	status := mv.Status
	if status == "" {
		status = TxCompleted
	}
	rec := Transaction{
		ID:          uuid.NewString(),
		OwnerID:     owner.String(),
		Kind:        mv.Kind,
		Amount:      signed,
		Currency:    currency,
		Status:      status,
		Description: mv.Description,
		BookingID:   mv.BookingID,
		ExternalRef: mv.ExternalRef,
		CreatedAt:   time.Now().UTC(),
	}

	var bookingID any
	if rec.BookingID != "" {
		parsed, err := uuid.Parse(rec.BookingID)
		if err != nil {
			return Transaction{}, fmt.Errorf("parse booking id: %w", err)
		}
		bookingID = parsed
	}

	if _, err := tx.Exec(ctx, `INSERT INTO transactions
        (id, owner_id, kind, amount, currency, status, description, booking_id, external_ref, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.MustParse(rec.ID), owner, string(rec.Kind), rec.Amount, rec.Currency,
		string(rec.Status), rec.Description, bookingID, rec.ExternalRef, rec.CreatedAt); err != nil {
		return Transaction{}, err
	}

	return rec, nil
}

// Transactions lists the owner's transactions newest-first.
func (l *PostgresLedger) Transactions(ctx context.Context, ownerID string, f Filter, p Page) ([]Transaction, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	query := `SELECT id, owner_id, kind, amount, currency, status, description,
        COALESCE(booking_id::text, ''), external_ref, created_at
        FROM transactions WHERE owner_id = $1`
	args := []any{owner}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.BookingID != "" {
		bid, err := uuid.Parse(f.BookingID)
		if err != nil {
			return nil, fmt.Errorf("parse booking id: %w", err)
		}
		args = append(args, bid)
		query += fmt.Sprintf(" AND booking_id = $%d", len(args))
	}
	args = append(args, p.Limit, p.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			rec   Transaction
			id    uuid.UUID
			owner uuid.UUID
		)
		if err := rows.Scan(&id, &owner, &rec.Kind, &rec.Amount, &rec.Currency,
			&rec.Status, &rec.Description, &rec.BookingID, &rec.ExternalRef, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ID = id.String()
		rec.OwnerID = owner.String()
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PendingPayouts lists payout transactions awaiting settlement, oldest
// first, across all wallets.
func (l *PostgresLedger) PendingPayouts(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	rows, err := l.db.Query(ctx, `SELECT id, owner_id, kind, amount, currency, status, description,
        COALESCE(booking_id::text, ''), external_ref, created_at
        FROM transactions WHERE kind = $1 AND status = $2
        ORDER BY created_at ASC LIMIT $3`,
		string(KindPayout), string(TxPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			rec   Transaction
			id    uuid.UUID
			owner uuid.UUID
		)
		if err := rows.Scan(&id, &owner, &rec.Kind, &rec.Amount, &rec.Currency,
			&rec.Status, &rec.Description, &rec.BookingID, &rec.ExternalRef, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ID = id.String()
		rec.OwnerID = owner.String()
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SettlePayout flips a pending payout transaction to its final status.
func (l *PostgresLedger) SettlePayout(ctx context.Context, txID string, status TxStatus, externalRef string) error {
	id, err := uuid.Parse(txID)
	if err != nil {
		return fmt.Errorf("parse transaction id: %w", err)
	}
	cmd, err := l.db.Exec(ctx, `UPDATE transactions SET status = $1, external_ref = $2
        WHERE id = $3 AND kind = $4 AND status = $5`,
		string(status), externalRef, id, string(KindPayout), string(TxPending))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pending payout transaction %s not found", txID)
	}
	return nil
}

// Deactivate closes the wallet to further movements.
func (l *PostgresLedger) Deactivate(ctx context.Context, ownerID string) error {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return fmt.Errorf("parse owner id: %w", err)
	}
	cmd, err := l.db.Exec(ctx, `UPDATE wallets SET active = FALSE WHERE owner_id = $1`, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (l *PostgresLedger) fetchWallet(ctx context.Context, owner uuid.UUID) (Wallet, error) {
	row := l.db.QueryRow(ctx, `SELECT owner_id, balance, currency, active, created_at
        FROM wallets WHERE owner_id = $1`, owner)
	var (
		w  Wallet
		id uuid.UUID
	)
	if err := row.Scan(&id, &w.Balance, &w.Currency, &w.Active, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.OwnerID = id.String()
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}
