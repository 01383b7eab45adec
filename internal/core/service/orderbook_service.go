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
	ErrEmptyQueue        = errors.New("no queued orders")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderBookService holds the FIFO queue of pending orders, the processed
// history, and the two-phase transaction that moves orders between them.
// One mutex guards check, commit and dequeue so concurrent callers can never
// observe a partially fulfilled order.
type OrderBookService struct {
	inventory *InventoryService
	notifier  port.Notifier
	logger    *zap.Logger

	mu        sync.Mutex
	queued    []domain.Order
	processed []domain.Order

	archiveQueue chan domain.Order
}

func NewOrderBookService(inventory *InventoryService, notifier port.Notifier, queueSize int, logger *zap.Logger) *OrderBookService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderBookService{
		inventory:    inventory,
		notifier:     notifier,
		logger:       logger,
		archiveQueue: make(chan domain.Order, queueSize),
	}
}

// QueueOrder appends a valid order to the tail of the queue. It never blocks
// on stock; availability is only decided at processing time.
func (s *OrderBookService) QueueOrder(order domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.queued = append(s.queued, order)
	depth := len(s.queued)
	s.mu.Unlock()

	s.logger.Info("order queued",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total().String()),
		zap.Int("queue_depth", depth),
	)
	return nil
}

// ProcessNext attempts to fulfill the head of the queue against current
// stock. The check phase verifies every line before the commit phase consumes
// anything, so an order is either fulfilled completely or not at all. A
// failed attempt leaves the order at the head for a later retry.
func (s *OrderBookService) ProcessNext(ctx context.Context) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queued) == 0 {
		return nil, ErrEmptyQueue
	}
	head := s.queued[0]

	// Check phase: every line must be coverable before anything is consumed.
	for _, line := range head.Lines {
		have, err := s.inventory.Quantity(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("check stock for %s: %w", line.ItemID, err)
		}
		if have.LessThan(line.Quantity) {
			s.logger.Info("order left queued",
				zap.String("order_id", head.ID),
				zap.String("item_id", line.ItemID),
				zap.String("wanted", line.Quantity.String()),
				zap.String("on_hand", have.String()),
			)
			return nil, ErrInsufficientStock
		}
	}

	// Commit phase. A failed consume here means the backend was mutated
	// between check and commit (possible with a shared stock store), so the
	// already-consumed lines are restored and the order stays queued.
	for i, line := range head.Lines {
		ok, err := s.inventory.TryConsume(ctx, line.ItemID, line.Quantity)
		if err == nil && !ok {
			err = ErrInsufficientStock
		}
		if err != nil {
			s.rollback(ctx, head, i)
			return nil, fmt.Errorf("consume %s: %w", line.ItemID, err)
		}
	}

	s.queued = s.queued[1:]
	s.processed = append(s.processed, head)
	revenue := s.revenueLocked()

	select {
	case s.archiveQueue <- head:
	default:
		s.logger.Warn("archive queue full, order record dropped",
			zap.String("order_id", head.ID),
		)
	}

	s.notifier.OrderProcessed(head, revenue)
	s.logger.Info("order processed",
		zap.String("order_id", head.ID),
		zap.String("total", head.Total().String()),
		zap.String("revenue", revenue.String()),
	)
	return &head, nil
}

func (s *OrderBookService) rollback(ctx context.Context, order domain.Order, consumed int) {
	for _, line := range order.Lines[:consumed] {
		if err := s.inventory.RestoreStock(ctx, line.ItemID, line.Quantity); err != nil {
			s.logger.Error("CRITICAL rollback failed",
				zap.String("order_id", order.ID),
				zap.String("item_id", line.ItemID),
				zap.String("amount", line.Quantity.String()),
				zap.Error(err),
			)
		}
	}
}

// QueuedOrders returns a copy of the pending queue, head first.
func (s *OrderBookService) QueuedOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.queued))
	copy(out, s.queued)
	return out
}

// ProcessedOrders returns a copy of the history in processing order.
func (s *OrderBookService) ProcessedOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.processed))
	copy(out, s.processed)
	return out
}

// TotalRevenue is recomputed from the processed history on every call.
func (s *OrderBookService) TotalRevenue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revenueLocked()
}

func (s *OrderBookService) revenueLocked() decimal.Decimal {
	total := decimal.Zero
	for _, o := range s.processed {
		total = total.Add(o.Total())
	}
	return total
}

// ArchiveQueue exposes processed orders to the archive workers.
func (s *OrderBookService) ArchiveQueue() <-chan domain.Order {
	return s.archiveQueue
}

// Close stops the archive feed; call after the last ProcessNext.
func (s *OrderBookService) Close() {
	close(s.archiveQueue)
}

type nopNotifier struct{}

func (nopNotifier) OrderProcessed(domain.Order, decimal.Decimal) {}
