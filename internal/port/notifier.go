package port

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-desk/internal/core/domain"
)

type Notifier interface {
	// OrderProcessed announces a freshly processed order together with the
	// revenue total after that order. Must not block.
	OrderProcessed(order domain.Order, revenue decimal.Decimal)
}
