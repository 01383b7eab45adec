package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
)

const (
	initialStock = 20
	totalOrders  = 50
	workerCount  = 8
	queueSize    = 256
)

// Floods the book with single-apple orders against a Redis stock pool, then
// hammers ProcessNext from several goroutines. With 20 apples on hand exactly
// 20 of the 50 orders must process and stock must end at zero, never below.
func main() {
	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	logger := zap.NewNop()
	stock := storage.NewRedisStock(rdb)
	inventory := service.NewInventoryService(stock, logger)
	book := service.NewOrderBookService(inventory, nil, queueSize, logger)
	defer book.Close()

	// Drain the archive feed in background.
	go func() {
		for range book.ArchiveQueue() {
		}
	}()

	apple, err := domain.NewUnitItem("Apple", decimal.RequireFromString("2.5"), decimal.RequireFromString("0.2"))
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}
	if err := inventory.RegisterItem(apple); err != nil {
		log.Fatalf("failed to register item: %v", err)
	}
	rdb.Del(ctx, "stock:"+apple.ID)
	if err := stock.Set(ctx, apple.ID, decimal.NewFromInt(initialStock)); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	for i := 0; i < totalOrders; i++ {
		order := domain.NewOrder()
		if err := order.AddLine(apple, decimal.NewFromInt(1)); err != nil {
			log.Fatalf("failed to build order: %v", err)
		}
		if err := book.QueueOrder(order); err != nil {
			log.Fatalf("failed to queue order: %v", err)
		}
	}

	var processedCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := book.ProcessNext(ctx)
				switch {
				case err == nil:
					processedCount.Add(1)
				case errors.Is(err, service.ErrEmptyQueue), errors.Is(err, service.ErrInsufficientStock):
					// Either the queue drained or the head can no longer be
					// covered; both end this worker.
					return
				default:
					log.Printf("process failed: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	remaining, err := stock.Quantity(ctx, apple.ID)
	if err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}

	fmt.Println("========== LOADGEN RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Queued Orders:    %d\n", totalOrders)
	fmt.Printf("Processed:        %d\n", processedCount.Load())
	fmt.Printf("Still Queued:     %d\n", len(book.QueuedOrders()))
	fmt.Printf("Remaining Stock:  %s\n", remaining)
	fmt.Printf("Total Revenue:    %s\n", book.TotalRevenue())
	fmt.Printf("Elapsed:          %s\n", elapsed)

	if processedCount.Load() != initialStock {
		fmt.Println("RESULT: FAIL (over- or under-processing detected)")
		os.Exit(1)
	}
	if remaining.Sign() != 0 {
		fmt.Println("RESULT: FAIL (stock not fully consumed)")
		os.Exit(1)
	}
	fmt.Println("RESULT: PASS (no oversell, stock exactly exhausted)")
}
