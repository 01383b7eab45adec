package storage

import (
	"context"
	"sync"

	"github.com/rl1809/order-desk/internal/core/domain"
)

// MemoryArchive keeps processed-order records in memory when no durable
// archive is configured.
type MemoryArchive struct {
	mu     sync.Mutex
	orders []domain.Order
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (a *MemoryArchive) SaveProcessed(ctx context.Context, order domain.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append(a.orders, order)
	return nil
}

// Orders returns a copy of the archived orders in save order.
func (a *MemoryArchive) Orders() []domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Order, len(a.orders))
	copy(out, a.orders)
	return out
}
