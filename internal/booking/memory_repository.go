package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Booking
}

// NewMemoryRepository constructs an in-memory repository for dev mode and
// tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Booking)}
}

func (r *memoryRepository) Create(_ context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[b.ID]; exists {
		return errors.New("booking exists")
	}
	r.storage[b.ID] = cloneBooking(b)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.storage[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memoryRepository) Update(_ context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[b.ID]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if current.Version != b.Version {
		return Booking{}, ErrStaleVersion
	}
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	r.storage[b.ID] = cloneBooking(b)
	return b, nil
}

func (r *memoryRepository) ListByClient(_ context.Context, clientID string, limit int) ([]Booking, error) {
	return r.list(func(b Booking) bool { return b.ClientID == clientID }, limit), nil
}

func (r *memoryRepository) ListByStylist(_ context.Context, stylistID string, limit int) ([]Booking, error) {
	return r.list(func(b Booking) bool { return b.StylistID == stylistID }, limit), nil
}

func (r *memoryRepository) SlotTaken(_ context.Context, stylistID string, date time.Time, slot string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.storage {
		if b.StylistID == stylistID && b.TimeSlot == slot &&
			sameDay(b.ScheduledDate, date) && b.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) list(match func(Booking) bool, limit int) []Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var out []Booking
	for _, b := range r.storage {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func cloneBooking(b Booking) Booking {
	out := b
	out.DisputeHistory = append([]DisputeHistoryItem(nil), b.DisputeHistory...)
	return out
}
