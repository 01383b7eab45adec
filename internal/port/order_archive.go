package port

import (
	"context"

	"github.com/rl1809/order-desk/internal/core/domain"
)

type OrderArchive interface {
	// SaveProcessed persists a processed order together with its lines.
	SaveProcessed(ctx context.Context, order domain.Order) error
}
