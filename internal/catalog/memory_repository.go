package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Offering
}

// NewMemoryRepository constructs an in-memory offering store for dev mode
// and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Offering)}
}

func (r *memoryRepository) Create(_ context.Context, o Offering) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[o.ID]; exists {
		return errors.New("offering exists")
	}
	o.Slots = append([]string(nil), o.Slots...)
	r.storage[o.ID] = o
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Offering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.storage[id]
	if !ok {
		return Offering{}, ErrNotFound
	}
	o.Slots = append([]string(nil), o.Slots...)
	return o, nil
}

func (r *memoryRepository) ListByStylist(_ context.Context, stylistID string) ([]Offering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Offering
	for _, o := range r.storage {
		if o.StylistID == stylistID && o.Active {
			o.Slots = append([]string(nil), o.Slots...)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
