package domain

import "github.com/google/uuid"

// OrderQueuer is the submission half of an order book.
type OrderQueuer interface {
	QueueOrder(order Order) error
}

// Customer tracks the orders a named customer has submitted.
type Customer struct {
	ID     string
	Name   string
	Orders []Order
}

func NewCustomer(name string) *Customer {
	return &Customer{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// CreateOrder queues the order and records it in the customer's history.
// Nothing is recorded when the book rejects the order.
func (c *Customer) CreateOrder(book OrderQueuer, order Order) error {
	if err := book.QueueOrder(order); err != nil {
		return err
	}
	c.Orders = append(c.Orders, order)
	return nil
}
