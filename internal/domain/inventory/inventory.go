// Package inventory tracks per-store stock levels. Inventory rows are keyed by
// the (product, store) pair; at most one row exists per pair.
package inventory

import (
	"context"
	"fmt"

	"github.com/xenking/storefront/internal/domain/product"
)

// Inventory is the stock level of one product in one store.
type Inventory struct {
	ID         int64
	ProductID  int64
	StoreID    int64
	StockLevel int
}

// Key identifies an inventory row.
func (i Inventory) Key() string {
	return fmt.Sprintf("product %d in store %d", i.ProductID, i.StoreID)
}

// Repository defines persistence operations for inventory rows.
type Repository interface {
	Create(ctx context.Context, inv *Inventory) error
	Find(ctx context.Context, productID, storeID int64) (*Inventory, error)
	// Replace overwrites the stock level of an existing row. When p is not
	// nil the product is overwritten in the same transaction.
	Replace(ctx context.Context, inv *Inventory, p *product.Product) error
	DeleteByProduct(ctx context.Context, productID int64) (int64, error)
}

// ProductLookup is the part of the catalog the validator needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}
