package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/order-desk/internal/adapter/handler"
	"github.com/rl1809/order-desk/internal/adapter/notify"
	"github.com/rl1809/order-desk/internal/adapter/storage"
	"github.com/rl1809/order-desk/internal/core/domain"
	"github.com/rl1809/order-desk/internal/core/service"
	"github.com/rl1809/order-desk/internal/port"
)

const (
	defaultHTTPAddr  = ":8080"
	workerCount      = 4
	archiveQueueSize = 1024
)

func main() {
	logger := zap.Must(zap.NewProduction())
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stock backend: Redis when configured, in-memory otherwise.
	var stockRepo port.StockRepository
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		stockRepo = storage.NewRedisStock(rdb)
		logger.Info("using redis stock backend", zap.String("addr", addr))
	} else {
		stockRepo = storage.NewMemoryStock()
		logger.Info("using in-memory stock backend")
	}

	// Processed-order archive: MySQL when configured.
	var archive port.OrderArchive
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			logger.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		defer db.Close()
		archive = storage.NewMySQLArchive(db)
		logger.Info("using mysql order archive")
	} else {
		archive = storage.NewMemoryArchive()
		logger.Info("using in-memory order archive")
	}

	hub := notify.NewHub(logger)
	go hub.Run()

	inventory := service.NewInventoryService(stockRepo, logger)
	book := service.NewOrderBookService(inventory, hub, archiveQueueSize, logger)

	if err := seedDemoData(ctx, inventory, book); err != nil {
		logger.Fatal("failed to seed demo data", zap.Error(err))
	}

	// Archive workers drain processed orders into the archive.
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			archiveLoop(id, book.ArchiveQueue(), archive, logger)
		}(i)
	}
	logger.Info("started archive workers", zap.Int("count", workerCount))

	httpHandler := handler.NewHTTPHandler(inventory, book, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/items", httpHandler.CreateItem)
	mux.HandleFunc("/api/stock", httpHandler.AddStock)
	mux.HandleFunc("/api/stock/low", httpHandler.LowStock)
	mux.HandleFunc("/api/orders", httpHandler.QueueOrder)
	mux.HandleFunc("/api/orders/process", httpHandler.ProcessNext)
	mux.HandleFunc("/api/orders/queued", httpHandler.QueuedOrders)
	mux.HandleFunc("/api/orders/processed", httpHandler.ProcessedOrders)
	mux.HandleFunc("/api/revenue", httpHandler.Revenue)
	mux.HandleFunc("/ws", hub.ServeWS)

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}
	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	book.Close()
	wg.Wait()
	logger.Info("archive workers stopped")

	hub.Stop()
	logger.Info("notification hub stopped")
}

// archiveLoop persists processed orders. An archive failure is logged and
// dropped; the stock consumption already committed.
func archiveLoop(id int, queue <-chan domain.Order, archive port.OrderArchive, logger *zap.Logger) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := archive.SaveProcessed(ctx, order); err != nil {
			logger.Error("failed to archive order",
				zap.Int("worker", id),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// seedDemoData loads the sample catalog, stock and queue the desk starts
// with: apples by the piece, flour by the kilogram, two pending orders.
func seedDemoData(ctx context.Context, inventory *service.InventoryService, book *service.OrderBookService) error {
	apple, err := domain.NewUnitItem("Apple", decimal.RequireFromString("2.5"), decimal.RequireFromString("0.2"))
	if err != nil {
		return err
	}
	flour, err := domain.NewBulkItem("Flour", decimal.RequireFromString("8.5"), "kg")
	if err != nil {
		return err
	}

	for _, item := range []domain.Item{apple, flour} {
		if err := inventory.RegisterItem(item); err != nil {
			return err
		}
	}
	if err := inventory.AddStock(ctx, apple.ID, decimal.NewFromInt(10)); err != nil {
		return err
	}
	if err := inventory.AddStock(ctx, flour.ID, decimal.NewFromInt(20)); err != nil {
		return err
	}

	first := domain.NewOrder()
	if err := first.AddLine(apple, decimal.NewFromInt(3)); err != nil {
		return err
	}
	if err := first.AddLine(flour, decimal.NewFromInt(1)); err != nil {
		return err
	}

	second := domain.NewOrder()
	if err := second.AddLine(apple, decimal.NewFromInt(2)); err != nil {
		return err
	}

	if err := book.QueueOrder(first); err != nil {
		return err
	}
	return book.QueueOrder(second)
}
