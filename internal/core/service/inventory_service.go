package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/port"
)

var (
	ErrUnknownItem   = errors.New("unknown item")
	ErrDuplicateItem = errors.New("item already registered")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// DefaultLowStockThreshold flags items that are about to run out.
var DefaultLowStockThreshold = decimal.NewFromInt(5)

// InventoryService owns the item catalog and fronts the stock backend.
type InventoryService struct {
	stock  port.StockRepository
	logger *zap.Logger

	mu      sync.RWMutex
	catalog map[string]domain.Item
}

func NewInventoryService(stock port.StockRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		stock:   stock,
		logger:  logger,
		catalog: make(map[string]domain.Item),
	}
}

func (s *InventoryService) RegisterItem(item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog[item.ID]; ok {
		return ErrDuplicateItem
	}
	s.catalog[item.ID] = item
	s.logger.Info("item registered",
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
		zap.String("kind", string(item.Kind)),
	)
	return nil
}

func (s *InventoryService) Item(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.catalog[id]
	return item, ok
}

// Items returns a snapshot of the catalog, order unspecified.
func (s *InventoryService) Items() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Item, 0, len(s.catalog))
	for _, item := range s.catalog {
		items = append(items, item)
	}
	return items
}

// AddStock increases the on-hand amount of a registered item.
func (s *InventoryService) AddStock(ctx context.Context, itemID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, ok := s.Item(itemID); !ok {
		return ErrUnknownItem
	}
	if err := s.stock.Add(ctx, itemID, amount); err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	s.logger.Info("stock received",
		zap.String("item_id", itemID),
		zap.String("amount", amount.String()),
	)
	return nil
}

func (s *InventoryService) Quantity(ctx context.Context, itemID string) (decimal.Decimal, error) {
	return s.stock.Quantity(ctx, itemID)
}

// TryConsume is the sole guarded write path that reduces stock.
func (s *InventoryService) TryConsume(ctx context.Context, itemID string, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, ErrInvalidAmount
	}
	return s.stock.TryConsume(ctx, itemID, amount)
}

// RestoreStock returns previously consumed stock, the rollback half of a
// failed commit. No registration check: the item was known when consumed.
func (s *InventoryService) RestoreStock(ctx context.Context, itemID string, amount decimal.Decimal) error {
	return s.stock.Add(ctx, itemID, amount)
}

// LowStock returns the catalog items whose on-hand amount is strictly below
// the threshold. Order is unspecified.
func (s *InventoryService) LowStock(ctx context.Context, threshold decimal.Decimal) ([]domain.Item, error) {
	var low []domain.Item
	for _, item := range s.Items() {
		qty, err := s.stock.Quantity(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("query stock for %s: %w", item.ID, err)
		}
		if qty.LessThan(threshold) {
			low = append(low, item)
		}
	}
	return low, nil
}
