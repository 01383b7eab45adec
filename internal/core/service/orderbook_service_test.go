package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
)

func newTestBook(t *testing.T) (*InventoryService, *OrderBookService) {
	t.Helper()
	inv := NewInventoryService(storage.NewMemoryStock(), zap.NewNop())
	book := NewOrderBookService(inv, nil, 128, zap.NewNop())
	t.Cleanup(book.Close)
	return inv, book
}

// seedShop registers the sample catalog: apples at 2.50 apiece (10 on hand)
// and flour at 8.50/kg (20 on hand).
func seedShop(t *testing.T, inv *InventoryService) (domain.Item, domain.Item) {
	t.Helper()
	ctx := context.Background()

	apple, err := domain.NewUnitItem("Apple", decimal.RequireFromString("2.5"), decimal.RequireFromString("0.2"))
	require.NoError(t, err)
	flour, err := domain.NewBulkItem("Flour", decimal.RequireFromString("8.5"), "kg")
	require.NoError(t, err)

	require.NoError(t, inv.RegisterItem(apple))
	require.NoError(t, inv.RegisterItem(flour))
	require.NoError(t, inv.AddStock(ctx, apple.ID, decimal.NewFromInt(10)))
	require.NoError(t, inv.AddStock(ctx, flour.ID, decimal.NewFromInt(20)))
	return apple, flour
}

func buildOrder(t *testing.T, lines ...func(*domain.Order) error) domain.Order {
	t.Helper()
	order := domain.NewOrder()
	for _, add := range lines {
		require.NoError(t, add(&order))
	}
	return order
}

func line(item domain.Item, qty int64) func(*domain.Order) error {
	return func(o *domain.Order) error {
		return o.AddLine(item, decimal.NewFromInt(qty))
	}
}

func quantity(t *testing.T, inv *InventoryService, itemID string) decimal.Decimal {
	t.Helper()
	qty, err := inv.Quantity(context.Background(), itemID)
	require.NoError(t, err)
	return qty
}

func TestQueueOrder_RejectsEmptyOrder(t *testing.T) {
	_, book := newTestBook(t)

	err := book.QueueOrder(domain.NewOrder())
	assert.ErrorIs(t, err, domain.ErrNoOrderLines)
	assert.Empty(t, book.QueuedOrders())
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	inv, book := newTestBook(t)
	apple, _ := seedShop(t, inv)

	order, err := book.ProcessNext(context.Background())
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrEmptyQueue)

	// A no-op: nothing was consumed, nothing was processed.
	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, book.ProcessedOrders())
	assert.True(t, book.TotalRevenue().Equal(decimal.Zero))
}

func TestProcessNext_EndToEnd(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)
	apple, flour := seedShop(t, inv)

	orderA := buildOrder(t, line(apple, 3), line(flour, 1))
	orderB := buildOrder(t, line(apple, 2))
	require.NoError(t, book.QueueOrder(orderA))
	require.NoError(t, book.QueueOrder(orderB))

	// First call fulfills order A.
	processed, err := book.ProcessNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, processed)
	assert.Equal(t, orderA.ID, processed.ID)
	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(7)))
	assert.True(t, quantity(t, inv, flour.ID).Equal(decimal.NewFromInt(19)))
	assert.True(t, book.TotalRevenue().Equal(decimal.RequireFromString("16")))
	require.Len(t, book.QueuedOrders(), 1)
	assert.Equal(t, orderB.ID, book.QueuedOrders()[0].ID)

	// Second call fulfills order B.
	processed, err = book.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, orderB.ID, processed.ID)
	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(5)))
	assert.True(t, book.TotalRevenue().Equal(decimal.RequireFromString("21")))
	assert.Empty(t, book.QueuedOrders())

	// Third call finds nothing and changes nothing.
	_, err = book.ProcessNext(ctx)
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(5)))
	assert.Len(t, book.ProcessedOrders(), 2)
}

func TestProcessNext_InsufficientStockLeavesOrderQueued(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)

	apple, err := domain.NewUnitItem("Apple", decimal.RequireFromString("2.5"), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, inv.RegisterItem(apple))
	require.NoError(t, inv.AddStock(ctx, apple.ID, decimal.NewFromInt(1)))

	order := buildOrder(t, line(apple, 2))
	require.NoError(t, book.QueueOrder(order))

	processed, err := book.ProcessNext(ctx)
	assert.Nil(t, processed)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(1)))
	require.Len(t, book.QueuedOrders(), 1)
	assert.Equal(t, order.ID, book.QueuedOrders()[0].ID)
	assert.Empty(t, book.ProcessedOrders())
}

func TestProcessNext_NoPartialFulfillment(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)
	apple, flour := seedShop(t, inv)

	// The apple line alone is coverable; the flour line is not. Nothing may
	// be consumed.
	order := buildOrder(t, line(apple, 3), line(flour, 100))
	require.NoError(t, book.QueueOrder(order))

	_, err := book.ProcessNext(ctx)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.True(t, quantity(t, inv, apple.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, quantity(t, inv, flour.ID).Equal(decimal.NewFromInt(20)))
	assert.Len(t, book.QueuedOrders(), 1)
}

func TestProcessNext_MissingInventoryEntryTreatedAsZero(t *testing.T) {
	inv, book := newTestBook(t)

	// Registered in the catalog but never stocked.
	ghost, err := domain.NewUnitItem("Ghost", decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, inv.RegisterItem(ghost))

	require.NoError(t, book.QueueOrder(buildOrder(t, line(ghost, 1))))

	_, err = book.ProcessNext(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestProcessNext_FIFOPreserved(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)
	apple, _ := seedShop(t, inv)

	first := buildOrder(t, line(apple, 1))
	second := buildOrder(t, line(apple, 2))
	third := buildOrder(t, line(apple, 3))
	for _, o := range []domain.Order{first, second, third} {
		require.NoError(t, book.QueueOrder(o))
	}

	for i := 0; i < 3; i++ {
		_, err := book.ProcessNext(ctx)
		require.NoError(t, err)
	}

	processed := book.ProcessedOrders()
	require.Len(t, processed, 3)
	assert.Equal(t, first.ID, processed[0].ID)
	assert.Equal(t, second.ID, processed[1].ID)
	assert.Equal(t, third.ID, processed[2].ID)
}

func TestRevenueAdditivity(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)
	apple, flour := seedShop(t, inv)

	require.NoError(t, book.QueueOrder(buildOrder(t, line(apple, 3), line(flour, 1))))
	require.NoError(t, book.QueueOrder(buildOrder(t, line(apple, 2))))

	for i := 0; i < 2; i++ {
		before := book.TotalRevenue()
		processed, err := book.ProcessNext(ctx)
		require.NoError(t, err)

		// Processing increases revenue by exactly the order's total, and the
		// running figure always matches the processed history.
		assert.True(t, book.TotalRevenue().Equal(before.Add(processed.Total())))
		sum := decimal.Zero
		for _, o := range book.ProcessedOrders() {
			sum = sum.Add(o.Total())
		}
		assert.True(t, book.TotalRevenue().Equal(sum))
	}
}

func TestQueuedOrdersReturnsCopy(t *testing.T) {
	inv, book := newTestBook(t)
	apple, _ := seedShop(t, inv)

	order := buildOrder(t, line(apple, 1))
	require.NoError(t, book.QueueOrder(order))

	snapshot := book.QueuedOrders()
	snapshot[0] = domain.NewOrder()

	assert.Equal(t, order.ID, book.QueuedOrders()[0].ID)
}

func TestProcessNext_FeedsArchiveQueue(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)
	apple, _ := seedShop(t, inv)

	order := buildOrder(t, line(apple, 1))
	require.NoError(t, book.QueueOrder(order))

	_, err := book.ProcessNext(ctx)
	require.NoError(t, err)

	archived := <-book.ArchiveQueue()
	assert.Equal(t, order.ID, archived.ID)
}

type recordingNotifier struct {
	mu      sync.Mutex
	orders  []domain.Order
	revenue []decimal.Decimal
}

func (n *recordingNotifier) OrderProcessed(order domain.Order, revenue decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	n.revenue = append(n.revenue, revenue)
}

func TestProcessNext_Notifies(t *testing.T) {
	ctx := context.Background()
	inv := NewInventoryService(storage.NewMemoryStock(), zap.NewNop())
	notifier := &recordingNotifier{}
	book := NewOrderBookService(inv, notifier, 16, zap.NewNop())
	defer book.Close()

	apple, flour := seedShop(t, inv)
	require.NoError(t, book.QueueOrder(buildOrder(t, line(apple, 3), line(flour, 1))))

	_, err := book.ProcessNext(ctx)
	require.NoError(t, err)

	require.Len(t, notifier.orders, 1)
	assert.Equal(t, "Apple x 3, Flour x 1", notifier.orders[0].LinesDisplay())
	assert.True(t, notifier.revenue[0].Equal(decimal.RequireFromString("16")))
}

func TestProcessNext_Concurrent(t *testing.T) {
	ctx := context.Background()
	inv, book := newTestBook(t)

	apple, err := domain.NewUnitItem("Apple", decimal.RequireFromString("2.5"), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, inv.RegisterItem(apple))
	require.NoError(t, inv.AddStock(ctx, apple.ID, decimal.NewFromInt(20)))

	const totalOrders = 50
	for i := 0; i < totalOrders; i++ {
		require.NoError(t, book.QueueOrder(buildOrder(t, line(apple, 1))))
	}

	var processed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := book.ProcessNext(ctx); err != nil {
					return
				}
				processed.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly the covered orders processed; stock fully drained, never negative.
	assert.EqualValues(t, 20, processed.Load())
	assert.True(t, quantity(t, inv, apple.ID).IsZero())
	assert.Len(t, book.ProcessedOrders(), 20)
	assert.Len(t, book.QueuedOrders(), totalOrders-20)
	assert.True(t, book.TotalRevenue().Equal(decimal.RequireFromString("50")))
}
