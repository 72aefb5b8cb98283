package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/product"
)

var _ inventory.Repository = (*InventoryRepository)(nil)

type inventoryRow struct {
	ID         int64 `db:"id"`
	ProductID  int64 `db:"product_id"`
	StoreID    int64 `db:"store_id"`
	StockLevel int   `db:"stock_level"`
}

// InventoryRepository implements inventory.Repository on SQLite.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository returns an InventoryRepository that uses db.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory (product_id, store_id, stock_level) VALUES (?, ?, ?)`,
		inv.ProductID, inv.StoreID, inv.StockLevel)
	if err != nil {
		return fmt.Errorf("creating inventory: %w", translateError(err, "inventory for", inv.Key()))
	}
	inv.ID, err = lastInsertID(res)
	return err
}

func (r *InventoryRepository) Find(ctx context.Context, productID, storeID int64) (*inventory.Inventory, error) {
	return findInventory(ctx, r.db, productID, storeID)
}

// Replace overwrites the stock level and, when p is not nil, the product in
// one transaction.
func (r *InventoryRepository) Replace(ctx context.Context, inv *inventory.Inventory, p *product.Product) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if p != nil {
		if err := updateProduct(ctx, tx, p); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory SET stock_level = ? WHERE product_id = ? AND store_id = ?`,
		inv.StockLevel, inv.ProductID, inv.StoreID)
	if err != nil {
		return fmt.Errorf("updating inventory: %w", translateError(err, "inventory for", inv.Key()))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("inventory", inv.Key())
	}
	return tx.Commit()
}

func (r *InventoryRepository) DeleteByProduct(ctx context.Context, productID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = ?`, productID)
	if err != nil {
		return 0, fmt.Errorf("deleting inventory of product %d: %w", productID, err)
	}
	return res.RowsAffected()
}

func findInventory(ctx context.Context, q querier, productID, storeID int64) (*inventory.Inventory, error) {
	var row inventoryRow
	err := q.GetContext(ctx, &row,
		`SELECT id, product_id, store_id, stock_level FROM inventory WHERE product_id = ? AND store_id = ?`,
		productID, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("inventory", inventory.Inventory{ProductID: productID, StoreID: storeID}.Key())
		}
		return nil, fmt.Errorf("finding inventory: %w", err)
	}
	return &inventory.Inventory{
		ID:         row.ID,
		ProductID:  row.ProductID,
		StoreID:    row.StoreID,
		StockLevel: row.StockLevel,
	}, nil
}
