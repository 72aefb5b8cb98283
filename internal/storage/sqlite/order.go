package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/store"
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.UnitOfWork = (*UnitOfWork)(nil)
	_ order.Tx         = (*orderTx)(nil)
)

type orderRow struct {
	ID         int64           `db:"id"`
	CustomerID int64           `db:"customer_id"`
	StoreID    int64           `db:"store_id"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  string          `db:"created_at"`
}

type orderItemRow struct {
	ID        int64           `db:"id"`
	OrderID   int64           `db:"order_id"`
	ProductID int64           `db:"product_id"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
}

// OrderRepository implements order.Repository on SQLite.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository returns an OrderRepository that uses db.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Details, []order.Item, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, customer_id, store_id, total_price, created_at FROM orders WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.NotFound("order", id)
		}
		return nil, nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing created_at of order %d: %w", id, err)
	}

	var itemRows []orderItemRow
	err = r.db.SelectContext(ctx, &itemRows,
		`SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items of order %d: %w", id, err)
	}

	items := make([]order.Item, len(itemRows))
	for i, it := range itemRows {
		items[i] = order.Item(it)
	}
	return &order.Details{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		StoreID:    row.StoreID,
		TotalPrice: row.TotalPrice,
		CreatedAt:  createdAt.UTC(),
	}, items, nil
}

// UnitOfWork runs the order workflow in an immediate SQLite transaction.
type UnitOfWork struct {
	db *sqlx.DB
}

// NewUnitOfWork returns a UnitOfWork that uses db.
func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(translateError(err, "order", ""), "commit")
	}
	return nil
}

type orderTx struct {
	tx *sqlx.Tx
}

func (t *orderTx) FindStoreByID(ctx context.Context, id int64) (*store.Store, error) {
	return getStore(ctx, t.tx, id)
}

func (t *orderTx) FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return getCustomer(ctx, t.tx, findCustomerByEmailSQL, email)
}

func (t *orderTx) SaveCustomer(ctx context.Context, c *customer.Customer) error {
	return saveCustomer(ctx, t.tx, c)
}

// LockInventory is a no-op: the single connection already serializes
// transactions.
func (t *orderTx) LockInventory(context.Context, int64, []int64) error {
	return nil
}

func (t *orderTx) SaveOrderDetails(ctx context.Context, d *order.Details) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (customer_id, store_id, total_price, created_at) VALUES (?, ?, ?, ?)`,
		d.CustomerID, d.StoreID, d.TotalPrice.String(), d.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("creating order: %w", translateError(err, "order", ""))
	}
	d.ID, err = lastInsertID(res)
	return err
}

func (t *orderTx) FindProductByID(ctx context.Context, id int64) (*product.Product, error) {
	return getProduct(ctx, t.tx, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id)
}

func (t *orderTx) FindInventory(ctx context.Context, productID, storeID int64) (*inventory.Inventory, error) {
	return findInventory(ctx, t.tx, productID, storeID)
}

func (t *orderTx) DecrementStock(ctx context.Context, inv *inventory.Inventory, qty int) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE inventory SET stock_level = stock_level - ?
		WHERE product_id = ? AND store_id = ? AND stock_level >= ?`,
		qty, inv.ProductID, inv.StoreID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock of %s: %w", inv.Key(), translateError(err, "inventory", inv.Key()))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrInsufficientStock
	}
	inv.StockLevel -= qty
	return nil
}

func (t *orderTx) SaveOrderItem(ctx context.Context, it *order.Item) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`,
		it.OrderID, it.ProductID, it.Quantity, it.Price.String())
	if err != nil {
		return fmt.Errorf("creating order item: %w", translateError(err, "order item", ""))
	}
	it.ID, err = lastInsertID(res)
	return err
}
