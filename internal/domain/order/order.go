package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/store"
)

// Details is the header record of a single purchase. It owns its Items.
type Details struct {
	ID         int64
	CustomerID int64
	StoreID    int64
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// Item is one product line of an order. Price is the unit price captured when
// the order was placed.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// Tx is the persistence contract of the order workflow. All calls made
// through one Tx belong to the same database transaction.
type Tx interface {
	FindStoreByID(ctx context.Context, id int64) (*store.Store, error)
	FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error)
	// SaveCustomer inserts c and assigns its ID. If a customer with the same
	// email was committed concurrently, that customer is loaded into c.
	SaveCustomer(ctx context.Context, c *customer.Customer) error
	// LockInventory acquires row locks on the store's inventory rows of the
	// given products, in ascending product order.
	LockInventory(ctx context.Context, storeID int64, productIDs []int64) error
	SaveOrderDetails(ctx context.Context, d *Details) error
	FindProductByID(ctx context.Context, id int64) (*product.Product, error)
	FindInventory(ctx context.Context, productID, storeID int64) (*inventory.Inventory, error)
	// DecrementStock subtracts qty from inv and persists it. It fails with
	// apperr.ErrInsufficientStock when the stored level is below qty.
	DecrementStock(ctx context.Context, inv *inventory.Inventory, qty int) error
	SaveOrderItem(ctx context.Context, it *Item) error
}

// UnitOfWork runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Repository defines read operations for placed orders.
type Repository interface {
	Get(ctx context.Context, id int64) (*Details, []Item, error)
}
