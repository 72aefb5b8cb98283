package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	createInventorySQL = `INSERT INTO inventory (product_id, store_id, stock_level) VALUES ($1, $2, $3) RETURNING id`

	findInventorySQL = `SELECT id, product_id, store_id, stock_level
		FROM inventory WHERE product_id = $1 AND store_id = $2`

	setStockLevelSQL = `UPDATE inventory SET stock_level = $3 WHERE product_id = $1 AND store_id = $2`

	lockInventorySQL = `SELECT id FROM inventory
		WHERE store_id = $1 AND product_id = ANY($2)
		ORDER BY product_id
		FOR UPDATE`

	decrementStockSQL = `UPDATE inventory SET stock_level = stock_level - $3
		WHERE product_id = $1 AND store_id = $2 AND stock_level >= $3
		RETURNING stock_level`
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Create inserts inv and assigns its ID. An existing (product, store) pair is
// reported as apperr.ErrDuplicateKey.
func (r *InventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	err := r.pool.QueryRow(ctx, createInventorySQL, inv.ProductID, inv.StoreID, inv.StockLevel).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("creating inventory: %w", translateError(err, "inventory for", inv.Key()))
	}
	return nil
}

// Find returns the row of the (product, store) pair.
func (r *InventoryRepository) Find(ctx context.Context, productID, storeID int64) (*inventory.Inventory, error) {
	return findInventory(ctx, r.pool, productID, storeID)
}

// Replace overwrites the stock level of inv and, when p is not nil, the
// product, in one transaction.
func (r *InventoryRepository) Replace(ctx context.Context, inv *inventory.Inventory, p *product.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if p != nil {
			if err := updateProduct(ctx, tx, p); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, setStockLevelSQL, inv.ProductID, inv.StoreID, inv.StockLevel)
		if err != nil {
			return fmt.Errorf("updating inventory: %w", translateError(err, "inventory for", inv.Key()))
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("inventory", inv.Key())
		}
		return nil
	})
}

// DeleteByProduct removes every inventory row of a product and reports how
// many were deleted.
func (r *InventoryRepository) DeleteByProduct(ctx context.Context, productID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteProductInventorySQL, productID)
	if err != nil {
		return 0, fmt.Errorf("deleting inventory of product %d: %w", productID, err)
	}
	return tag.RowsAffected(), nil
}

func findInventory(ctx context.Context, q querier, productID, storeID int64) (*inventory.Inventory, error) {
	rows, err := q.Query(ctx, findInventorySQL, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("finding inventory: %w", err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInventory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("inventory", inventory.Inventory{ProductID: productID, StoreID: storeID}.Key())
		}
		return nil, fmt.Errorf("finding inventory: %w", err)
	}
	return &inv, nil
}

func scanInventory(row pgx.CollectableRow) (inventory.Inventory, error) {
	var inv inventory.Inventory
	err := row.Scan(&inv.ID, &inv.ProductID, &inv.StoreID, &inv.StockLevel)
	return inv, err
}
