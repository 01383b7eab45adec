package storage

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStock is the default process-local stock backend.
type MemoryStock struct {
	mu    sync.RWMutex
	stock map[string]decimal.Decimal
}

func NewMemoryStock() *MemoryStock {
	return &MemoryStock{stock: make(map[string]decimal.Decimal)}
}

func (m *MemoryStock) Add(ctx context.Context, itemID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = m.stock[itemID].Add(amount)
	return nil
}

func (m *MemoryStock) Quantity(ctx context.Context, itemID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stock[itemID], nil
}

func (m *MemoryStock) TryConsume(ctx context.Context, itemID string, amount decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	have := m.stock[itemID]
	if have.LessThan(amount) {
		return false, nil
	}
	m.stock[itemID] = have.Sub(amount)
	return true, nil
}

func (m *MemoryStock) Set(ctx context.Context, itemID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = amount
	return nil
}
