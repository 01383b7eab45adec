package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/order-desk/internal/core/domain"
)

// MySQLArchive writes processed orders to MySQL, one transaction per order.
type MySQLArchive struct {
	db *sql.DB
}

func NewMySQLArchive(db *sql.DB) *MySQLArchive {
	return &MySQLArchive{db: db}
}

func (m *MySQLArchive) SaveProcessed(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO processed_orders (id, total, line_summary, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		order.ID, order.Total().String(), order.LinesDisplay(), order.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO processed_order_lines (order_id, item_id, item_name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID, line.ItemID, line.ItemName, line.UnitPrice.String(), line.Quantity.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}
