package order

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps orders in process memory. CompletePayment holds the
// mutex for the whole check-and-set, like the row lock in the SQL store.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[uint]*Order
	notes  map[uint][]string
	meta   map[uint]map[string]string
}

func NewMemoryRepository(orders ...*Order) *MemoryRepository {
	r := &MemoryRepository{
		orders: make(map[uint]*Order),
		notes:  make(map[uint][]string),
		meta:   make(map[uint]map[string]string),
	}
	for _, o := range orders {
		r.Save(o)
	}
	return r
}

func (r *MemoryRepository) Save(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.ID] = clone(o)
}

func (r *MemoryRepository) Get(_ context.Context, id uint) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uint, status Status, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}

	o.Status = status
	o.UpdatedAt = time.Now()
	if note != "" {
		r.notes[id] = append(r.notes[id], note)
	}
	return nil
}

func (r *MemoryRepository) AddNote(_ context.Context, id uint, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	r.notes[id] = append(r.notes[id], note)
	return nil
}

func (r *MemoryRepository) SetMetadata(_ context.Context, id uint, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	r.setMetaLocked(id, key, value)
	return nil
}

func (r *MemoryRepository) CompletePayment(_ context.Context, id uint, note string, meta []Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if !o.NeedsPayment() {
		return ErrAlreadyPaid
	}

	r.notes[id] = append(r.notes[id], note)
	o.Status = StatusPaid
	o.UpdatedAt = time.Now()
	for _, m := range meta {
		r.setMetaLocked(id, m.Key, m.Value)
	}
	return nil
}

// Notes returns a copy of the notes recorded for the order, oldest first.
func (r *MemoryRepository) Notes(id uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.notes[id]...)
}

func (r *MemoryRepository) Metadata(id uint) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.meta[id]))
	for k, v := range r.meta[id] {
		out[k] = v
	}
	return out
}

func (r *MemoryRepository) setMetaLocked(id uint, key, value string) {
	if r.meta[id] == nil {
		r.meta[id] = make(map[string]string)
	}
	r.meta[id][key] = value
}

func clone(o *Order) *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	c.Fees = append([]Fee(nil), o.Fees...)
	return &c
}
