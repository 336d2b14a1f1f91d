package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a balance-reducing movement would
	// drive the wallet negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletInactive occurs when a movement targets a deactivated wallet.
	ErrWalletInactive = errors.New("wallet inactive")

	// ErrWalletNotFound occurs when a wallet lookup finds no record and lazy
	// creation does not apply.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Kind classifies a ledger movement.
type Kind string

const (
	KindCredit        Kind = "credit"
	KindDebit         Kind = "debit"
	KindEscrowHold    Kind = "escrow_hold"
	KindEscrowRelease Kind = "escrow_release"
	KindRefund        Kind = "refund"
	KindPayout        Kind = "payout"
)

// Reduces reports whether the kind takes funds out of the wallet.
func (k Kind) Reduces() bool {
	switch k {
	case KindDebit, KindEscrowHold, KindPayout:
		return true
	}
	return false
}

// Valid reports whether the kind belongs to the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindCredit, KindDebit, KindEscrowHold, KindEscrowRelease, KindRefund, KindPayout:
		return true
	}
	return false
}

// TxStatus is the settlement state of a recorded transaction. Only payout
// transactions are created pending; everything else settles at creation.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

// Wallet is the stored-value account for one user. Balance is in minor
// units and is only ever mutated through Record.
type Wallet struct {
	OwnerID   string
	Balance   int64
	Currency  string
	Active    bool
	CreatedAt time.Time
}

// Transaction is one immutable ledger movement. Amount is signed: negative
// for movements that reduced the balance.
type Transaction struct {
	ID          string
	OwnerID     string
	Kind        Kind
	Amount      int64
	Currency    string
	Status      TxStatus
	Description string
	BookingID   string
	ExternalRef string
	CreatedAt   time.Time
}

// Movement describes a requested balance change. Amount is the positive
// magnitude; the ledger applies the sign from the kind.
type Movement struct {
	OwnerID     string
	Kind        Kind
	Amount      int64
	Description string
	BookingID   string
	ExternalRef string
	// Status overrides the default completed settlement state. Used for
	// payouts awaiting external settlement.
	Status TxStatus
}

// Filter narrows a transaction listing.
type Filter struct {
	Kind      Kind
	BookingID string
}

// Page bounds a transaction listing.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit applies when a listing requests no explicit limit.
const DefaultPageLimit = 50

// Ledger is the sole authority over wallet balances and the transaction
// log. Implementations apply the balance change and append the transaction
// as one atomic unit: no observable state reflects one without the other.
type Ledger interface {
	// EnsureWallet lazily creates a zero-balance wallet for the owner.
	EnsureWallet(ctx context.Context, ownerID string) (Wallet, error)

	// Balance returns the wallet, creating it lazily if absent.
	Balance(ctx context.Context, ownerID string) (Wallet, error)

	// Record validates the movement against the current balance, applies
	// it, and appends the transaction atomically.
	Record(ctx context.Context, mv Movement) (Transaction, error)

	// Transactions lists the owner's transactions newest-first.
	Transactions(ctx context.Context, ownerID string, f Filter, p Page) ([]Transaction, error)

	// PendingPayouts lists payout transactions still awaiting external
	// settlement, oldest first, across all wallets.
	PendingPayouts(ctx context.Context, limit int) ([]Transaction, error)

	// SettlePayout flips a pending payout transaction to its final status.
	// The wallet was already debited at record time; a failed payout is
	// compensated by the caller with a credit movement.
	SettlePayout(ctx context.Context, txID string, status TxStatus, externalRef string) error

	// Deactivate closes the wallet to further movements. Wallets are never
	// deleted.
	Deactivate(ctx context.Context, ownerID string) error
}
