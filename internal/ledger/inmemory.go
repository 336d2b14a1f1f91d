package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	currency string
	wallets  map[string]Wallet
	log      []Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger used in dev mode
// and unit tests.
func NewInMemory(currency string) Ledger {
	if currency == "" {
		currency = defaultCurrency
	}
	return &inMemoryLedger{
		currency: currency,
		wallets:  make(map[string]Wallet),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLocked(ownerID), nil
}

func (l *inMemoryLedger) Balance(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLocked(ownerID), nil
}

func (l *inMemoryLedger) Record(_ context.Context, mv Movement) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordLocked(mv)
}

func (l *inMemoryLedger) Transactions(_ context.Context, ownerID string, f Filter, p Page) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	var matched []Transaction
	// The log is append-ordered; walk it backwards for newest-first.
	for i := len(l.log) - 1; i >= 0; i-- {
		rec := l.log[i]
		if rec.OwnerID != ownerID {
			continue
		}
		if f.Kind != "" && rec.Kind != f.Kind {
			continue
		}
		if f.BookingID != "" && rec.BookingID != f.BookingID {
			continue
		}
		matched = append(matched, rec)
	}

	if p.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[p.Offset:]
	if len(matched) > p.Limit {
		matched = matched[:p.Limit]
	}
	return matched, nil
}

func (l *inMemoryLedger) PendingPayouts(_ context.Context, limit int) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	var out []Transaction
	for _, rec := range l.log {
		if rec.Kind == KindPayout && rec.Status == TxPending {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (l *inMemoryLedger) SettlePayout(_ context.Context, txID string, status TxStatus, externalRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.log {
		if l.log[i].ID == txID && l.log[i].Kind == KindPayout && l.log[i].Status == TxPending {
			l.log[i].Status = status
			l.log[i].ExternalRef = externalRef
			return nil
		}
	}
	return fmt.Errorf("pending payout transaction %s not found", txID)
}

func (l *inMemoryLedger) Deactivate(_ context.Context, ownerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[ownerID]
	if !ok {
		return ErrWalletNotFound
	}
	w.Active = false
	l.wallets[ownerID] = w
	return nil
}

func (l *inMemoryLedger) ensureLocked(ownerID string) Wallet {
	w, ok := l.wallets[ownerID]
	if !ok {
		w = Wallet{
			OwnerID:   ownerID,
			Currency:  l.currency,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		l.wallets[ownerID] = w
	}
	return w
}

func (l *inMemoryLedger) recordLocked(mv Movement) (Transaction, error) {
	if !mv.Kind.Valid() {
		return Transaction{}, fmt.Errorf("invalid movement kind %q", mv.Kind)
	}
	if mv.Amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive")
	}

	w := l.ensureLocked(mv.OwnerID)
	if !w.Active {
		return Transaction{}, ErrWalletInactive
	}

	signed := mv.Amount
	if mv.Kind.Reduces() {
		signed = -mv.Amount
		if w.Balance < mv.Amount {
			return Transaction{}, fmt.Errorf("%w: required %d, available %d", ErrInsufficientFunds, mv.Amount, w.Balance)
		}
	}

	status := mv.Status
	if status == "" {
		status = TxCompleted
	}

	w.Balance += signed
	l.wallets[mv.OwnerID] = w

	rec := Transaction{
		ID:          uuid.NewString(),
		OwnerID:     mv.OwnerID,
		Kind:        mv.Kind,
		Amount:      signed,
		Currency:    l.currency,
		Status:      status,
		Description: mv.Description,
		BookingID:   mv.BookingID,
		ExternalRef: mv.ExternalRef,
		CreatedAt:   time.Now().UTC(),
	}
	l.log = append(l.log, rec)
	return rec, nil
}
