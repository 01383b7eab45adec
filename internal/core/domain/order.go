package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoOrderLines        = errors.New("order has no lines")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
)

// OrderLine freezes the item's name and unit price at the moment the line is
// added, so later catalog edits never reprice an existing order.
type OrderLine struct {
	ItemID    string
	ItemName  string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

func (l OrderLine) String() string {
	return fmt.Sprintf("%s x %s -> %s", l.ItemName, l.Quantity, l.LineTotal())
}

type Order struct {
	ID        string
	CreatedAt time.Time
	Lines     []OrderLine
}

func NewOrder() Order {
	return Order{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

// AddLine appends one item demand to the order, snapshotting the item's
// current name and unit price.
func (o *Order) AddLine(item Item, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return ErrNonPositiveQuantity
	}
	o.Lines = append(o.Lines, OrderLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		UnitPrice: item.PricePerUnit,
		Quantity:  quantity,
	})
	return nil
}

// Total is the sum of all line totals.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// LinesDisplay renders a short summary such as "Apple x 3, Flour x 1".
func (o Order) LinesDisplay() string {
	parts := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		parts = append(parts, fmt.Sprintf("%s x %s", l.ItemName, l.Quantity))
	}
	return strings.Join(parts, ", ")
}

// Validate reports whether the order is fit for queueing.
func (o Order) Validate() error {
	if len(o.Lines) == 0 {
		return ErrNoOrderLines
	}
	for _, l := range o.Lines {
		if !l.Quantity.IsPositive() {
			return ErrNonPositiveQuantity
		}
	}
	return nil
}
