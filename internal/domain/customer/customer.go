// Package customer holds the customer entity. Customers are identified by
// email: the first order from a new email creates one.
package customer

import (
	"context"
	"strings"
)

// Customer is a person that placed at least one order.
type Customer struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

// NormalizeEmail returns the lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository provides read access to customers outside the order workflow.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}
