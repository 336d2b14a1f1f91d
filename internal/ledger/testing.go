package ledger

// SeedBalance seeds an account balance directly when using the in-memory
// ledger. Test helper only; it bypasses the transaction log.
func SeedBalance(l Ledger, ownerID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w := mem.ensureLocked(ownerID)
		w.Balance = amount
		mem.wallets[ownerID] = w
	}
}
