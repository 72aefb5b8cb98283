package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
)

// NegativeStockError indicates an attempt to store a stock level below zero.
type NegativeStockError struct {
	ProductID int64
	StoreID   int64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock level must not be negative for product %d in store %d", e.ProductID, e.StoreID)
}

// ErrProductMismatch is returned when an update carries a product whose id
// differs from the inventory row's product.
var ErrProductMismatch = errors.New("product id does not match inventory product id")

// ErrNonPositiveQuantity is returned when a stock check asks for zero or
// fewer units.
var ErrNonPositiveQuantity = errors.New("quantity must be greater than 0")

// StoreLookup is the part of the store repository the service needs.
type StoreLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// UpdateRequest replaces the stock level of an existing row. Product, when
// set, is overwritten together with the stock level.
type UpdateRequest struct {
	ProductID  int64
	StoreID    int64
	StockLevel int
	Product    *product.Product
}

// Service implements inventory management.
type Service struct {
	repo      Repository
	products  product.Repository
	stores    StoreLookup
	validator *Validator
}

// NewService creates an inventory Service.
func NewService(repo Repository, products product.Repository, stores StoreLookup) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		stores:    stores,
		validator: NewValidator(products, repo),
	}
}

// Validator returns the precondition checker used by the service.
func (s *Service) Validator() *Validator { return s.validator }

// Create adds the inventory row for a new (product, store) pair. An existing
// pair is rejected without touching the stored row.
func (s *Service) Create(ctx context.Context, inv *Inventory) error {
	if inv.StockLevel < 0 {
		return &NegativeStockError{ProductID: inv.ProductID, StoreID: inv.StoreID}
	}
	ok, err := s.validator.ExistsProduct(ctx, inv.ProductID)
	if err != nil {
		return errors.Wrap(err, "check product")
	}
	if !ok {
		return apperr.NotFound("product", inv.ProductID)
	}
	ok, err = s.stores.Exists(ctx, inv.StoreID)
	if err != nil {
		return errors.Wrap(err, "check store")
	}
	if !ok {
		return apperr.NotFound("store", inv.StoreID)
	}

	isNew, err := s.validator.IsNewInventoryPair(ctx, inv.ProductID, inv.StoreID)
	if err != nil {
		return errors.Wrap(err, "check inventory pair")
	}
	if !isNew {
		return apperr.Duplicate("inventory for", inv.Key())
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return errors.Wrap(err, "create inventory")
	}
	zctx.From(ctx).Info("Inventory created",
		zap.Int64("product_id", inv.ProductID),
		zap.Int64("store_id", inv.StoreID),
		zap.Int("stock_level", inv.StockLevel),
	)
	return nil
}

// Update replaces the stock level of an existing row.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Inventory, error) {
	if req.StockLevel < 0 {
		return nil, &NegativeStockError{ProductID: req.ProductID, StoreID: req.StoreID}
	}
	if req.Product != nil && req.Product.ID != req.ProductID {
		return nil, ErrProductMismatch
	}
	if req.Product != nil {
		if err := product.Validate(req.Product); err != nil {
			return nil, err
		}
	}

	ok, err := s.validator.ExistsProduct(ctx, req.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "check product")
	}
	if !ok {
		return nil, apperr.NotFound("product", req.ProductID)
	}

	inv, err := s.validator.FindInventory(ctx, req.ProductID, req.StoreID)
	if err != nil {
		return nil, err
	}
	inv.StockLevel = req.StockLevel

	if err := s.repo.Replace(ctx, inv, req.Product); err != nil {
		return nil, errors.Wrap(err, "update inventory")
	}
	return inv, nil
}

// DeleteByProduct removes every inventory row of a product. The product
// itself is kept.
func (s *Service) DeleteByProduct(ctx context.Context, productID int64) error {
	ok, err := s.validator.ExistsProduct(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "check product")
	}
	if !ok {
		return apperr.NotFound("product", productID)
	}
	n, err := s.repo.DeleteByProduct(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "delete inventory")
	}
	zctx.From(ctx).Info("Inventory removed", zap.Int64("product_id", productID), zap.Int64("rows", n))
	return nil
}

// StoreProducts lists the products stocked in a store, narrowed by the
// optional name and category filters.
func (s *Service) StoreProducts(ctx context.Context, storeID int64, name, category *string) ([]product.Product, error) {
	return s.products.Search(ctx, product.Filter{
		StoreID:  &storeID,
		Name:     name,
		Category: category,
	})
}

// HasStock reports whether the store holds at least qty units of the product.
// A missing inventory row means no stock.
func (s *Service) HasStock(ctx context.Context, productID, storeID int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrNonPositiveQuantity
	}
	inv, err := s.validator.FindInventory(ctx, productID, storeID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return inv.StockLevel >= qty, nil
}
