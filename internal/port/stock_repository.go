package port

import (
	"context"

	"github.com/shopspring/decimal"
)

type StockRepository interface {
	// Add increases the on-hand amount for an item, creating the entry if
	// absent. Also the restore path when a partially committed order is
	// rolled back.
	Add(ctx context.Context, itemID string, amount decimal.Decimal) error

	// Quantity returns the current on-hand amount; zero for unknown items.
	Quantity(ctx context.Context, itemID string) (decimal.Decimal, error)

	// TryConsume atomically decreases stock, returns false if insufficient.
	TryConsume(ctx context.Context, itemID string, amount decimal.Decimal) (bool, error)

	// Set overwrites the on-hand amount (seeding and tests).
	Set(ctx context.Context, itemID string, amount decimal.Decimal) error
}
