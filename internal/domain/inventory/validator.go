package inventory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Validator checks existence and uniqueness preconditions of inventory
// operations.
type Validator struct {
	products  ProductLookup
	inventory Repository
}

// NewValidator creates a Validator.
func NewValidator(products ProductLookup, inventory Repository) *Validator {
	return &Validator{products: products, inventory: inventory}
}

// ExistsProduct reports whether a product with the given id exists.
func (v *Validator) ExistsProduct(ctx context.Context, id int64) (bool, error) {
	_, err := v.products.GetByID(ctx, id)
	return found(err)
}

// IsNewInventoryPair reports whether no inventory row exists for the pair.
func (v *Validator) IsNewInventoryPair(ctx context.Context, productID, storeID int64) (bool, error) {
	_, err := v.inventory.Find(ctx, productID, storeID)
	exists, err := found(err)
	return !exists, err
}

// FindInventory returns the row for the pair, or an apperr.ErrNotFound error.
func (v *Validator) FindInventory(ctx context.Context, productID, storeID int64) (*Inventory, error) {
	return v.inventory.Find(ctx, productID, storeID)
}

func found(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
