package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/store"
)

const (
	createOrderSQL = `INSERT INTO orders (customer_id, store_id, total_price, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	getOrderSQL = `SELECT id, customer_id, store_id, total_price, created_at FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.UnitOfWork = (*UnitOfWork)(nil)
	_ order.Tx         = (*orderTx)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get returns the order header and its lines.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Details, []order.Item, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (order.Details, error) {
		var d order.Details
		err := row.Scan(&d.ID, &d.CustomerID, &d.StoreID, &d.TotalPrice, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.NotFound("order", id)
		}
		return nil, nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	d.CreatedAt = d.CreatedAt.UTC()

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items of order %d: %w", id, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price)
		return it, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("listing items of order %d: %w", id, err)
	}
	return &d, items, nil
}

// UnitOfWork runs the order workflow in a READ COMMITTED transaction.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork that uses the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// InTx begins a transaction, runs fn and commits when fn succeeds.
func (u *UnitOfWork) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(translateError(err, "order", ""), "commit")
	}
	return nil
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) FindStoreByID(ctx context.Context, id int64) (*store.Store, error) {
	return getStore(ctx, t.tx, id)
}

func (t *orderTx) FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return queryCustomer(ctx, t.tx, findCustomerByEmailSQL, email)
}

func (t *orderTx) SaveCustomer(ctx context.Context, c *customer.Customer) error {
	return saveCustomer(ctx, t.tx, c)
}

func (t *orderTx) LockInventory(ctx context.Context, storeID int64, productIDs []int64) error {
	rows, err := t.tx.Query(ctx, lockInventorySQL, storeID, productIDs)
	if err != nil {
		return fmt.Errorf("locking inventory of store %d: %w", storeID, err)
	}
	if _, err := pgx.CollectRows(rows, pgx.RowTo[int64]); err != nil {
		return fmt.Errorf("locking inventory of store %d: %w", storeID, err)
	}
	return nil
}

func (t *orderTx) SaveOrderDetails(ctx context.Context, d *order.Details) error {
	err := t.tx.QueryRow(ctx, createOrderSQL, d.CustomerID, d.StoreID, d.TotalPrice, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("creating order: %w", translateError(err, "order", ""))
	}
	return nil
}

func (t *orderTx) FindProductByID(ctx context.Context, id int64) (*product.Product, error) {
	return getProduct(ctx, t.tx, getProductByIDSQL, id)
}

func (t *orderTx) FindInventory(ctx context.Context, productID, storeID int64) (*inventory.Inventory, error) {
	return findInventory(ctx, t.tx, productID, storeID)
}

func (t *orderTx) DecrementStock(ctx context.Context, inv *inventory.Inventory, qty int) error {
	var level int
	err := t.tx.QueryRow(ctx, decrementStockSQL, inv.ProductID, inv.StoreID, qty).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrInsufficientStock
		}
		return fmt.Errorf("decrementing stock of %s: %w", inv.Key(), translateError(err, "inventory", inv.Key()))
	}
	inv.StockLevel = level
	return nil
}

func (t *orderTx) SaveOrderItem(ctx context.Context, it *order.Item) error {
	err := t.tx.QueryRow(ctx, createOrderItemSQL, it.OrderID, it.ProductID, it.Quantity, it.Price).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("creating order item: %w", translateError(err, "order item", ""))
	}
	return nil
}
