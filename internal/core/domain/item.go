package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	ItemKindUnit ItemKind = "unit"
	ItemKindBulk ItemKind = "bulk"
)

var (
	ErrEmptyItemName = errors.New("item name is required")
	ErrNegativePrice = errors.New("price per unit must not be negative")
)

// Item is a priced, stockable catalog entry. The kind tag only carries
// descriptive metadata; pricing is linear for both kinds.
type Item struct {
	ID           string
	Name         string
	PricePerUnit decimal.Decimal
	Kind         ItemKind

	// Weight is the per-piece weight in kg, unit items only, informational.
	Weight decimal.Decimal

	// MeasurementUnit labels bulk quantities, e.g. "kg".
	MeasurementUnit string
}

// NewUnitItem creates a piece-priced item with a stable generated ID.
func NewUnitItem(name string, pricePerUnit, weight decimal.Decimal) (Item, error) {
	if err := validateItem(name, pricePerUnit); err != nil {
		return Item{}, err
	}
	return Item{
		ID:           uuid.NewString(),
		Name:         name,
		PricePerUnit: pricePerUnit,
		Kind:         ItemKindUnit,
		Weight:       weight,
	}, nil
}

// NewBulkItem creates an item priced per measurement unit. An empty unit
// label defaults to "kg".
func NewBulkItem(name string, pricePerUnit decimal.Decimal, measurementUnit string) (Item, error) {
	if err := validateItem(name, pricePerUnit); err != nil {
		return Item{}, err
	}
	if measurementUnit == "" {
		measurementUnit = "kg"
	}
	return Item{
		ID:              uuid.NewString(),
		Name:            name,
		PricePerUnit:    pricePerUnit,
		Kind:            ItemKindBulk,
		MeasurementUnit: measurementUnit,
	}, nil
}

func validateItem(name string, pricePerUnit decimal.Decimal) error {
	if name == "" {
		return ErrEmptyItemName
	}
	if pricePerUnit.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// PriceFor returns the price of the given quantity of the item.
func (i Item) PriceFor(quantity decimal.Decimal) decimal.Decimal {
	return i.PricePerUnit.Mul(quantity)
}

func (i Item) String() string {
	if i.Kind == ItemKindBulk {
		return fmt.Sprintf("%s: %s per %s", i.Name, i.PricePerUnit, i.MeasurementUnit)
	}
	return fmt.Sprintf("%s: %s per unit (wt %s kg)", i.Name, i.PricePerUnit, i.Weight)
}
