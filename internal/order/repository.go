package order

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrSettled is returned when an order has already left pending.
	ErrSettled = errors.New("order already settled")
)

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ord Order) (Order, error)
	GetByReference(reference string) (Order, error)
	// UpdateStatus moves a pending order with the given payment reference to
	// status and returns the updated order. Orders that are no longer pending
	// are left untouched and yield ErrSettled.
	UpdateStatus(reference string, status Status, at time.Time) (Order, error)
	// ListBySession returns a session's orders, newest first.
	ListBySession(sessionID string) ([]Order, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]Order)}
}

func (r *InMemoryRepository) Create(ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[ord.Reference] = ord
	return ord, nil
}

func (r *InMemoryRepository) GetByReference(reference string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ord, ok := r.orders[reference]
	if !ok {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

func (r *InMemoryRepository) UpdateStatus(reference string, status Status, at time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[reference]
	if !ok {
		return Order{}, ErrNotFound
	}
	if ord.Status != StatusPending {
		return ord, ErrSettled
	}
	ord.Status = status
	ord.UpdatedAt = at
	r.orders[reference] = ord
	return ord, nil
}

func (r *InMemoryRepository) ListBySession(sessionID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.SessionID == sessionID {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
