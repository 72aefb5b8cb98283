package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	return db
}

type fixture struct {
	db      *sqlx.DB
	store   store.Store
	product product.Product
}

func newFixture(t *testing.T, stock int) fixture {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()

	s := store.Store{Name: "Downtown", Address: "1 Main St"}
	require.NoError(t, NewStoreRepository(db).Create(ctx, &s))

	p := product.Product{Name: "Milk", Category: "dairy", Price: decimal.RequireFromString("12.50"), SKU: "MLK-1"}
	require.NoError(t, NewProductRepository(db).Create(ctx, &p))

	inv := inventory.Inventory{ProductID: p.ID, StoreID: s.ID, StockLevel: stock}
	require.NoError(t, NewInventoryRepository(db).Create(ctx, &inv))

	return fixture{db: db, store: s, product: p}
}

func (f fixture) orders(t *testing.T) *order.Service {
	t.Helper()
	svc, err := order.NewService(
		NewUnitOfWork(f.db),
		NewOrderRepository(f.db),
		NewCustomerRepository(f.db),
		tracenoop.NewTracerProvider(),
		metricnoop.NewMeterProvider(),
	)
	require.NoError(t, err)
	return svc
}

func (f fixture) stock(t *testing.T) int {
	t.Helper()
	inv, err := NewInventoryRepository(f.db).Find(context.Background(), f.product.ID, f.store.ID)
	require.NoError(t, err)
	return inv.StockLevel
}

func (f fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func (f fixture) request(email string, qty int) order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		CustomerName:  "Ada",
		CustomerEmail: email,
		CustomerPhone: "555-0100",
		StoreID:       f.store.ID,
		TotalPrice:    decimal.RequireFromString("29.97"),
		Items: []order.LineItem{
			{ProductID: f.product.ID, Quantity: qty, Price: decimal.RequireFromString("9.99")},
		},
	}
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, ":memory:?"+defaultPragmas, withPragmas(":memory:"))
	assert.Equal(t, "file:shop.db?mode=rwc&"+defaultPragmas, withPragmas("file:shop.db?mode=rwc"))
	assert.Equal(t, "shop.db?_pragma=foreign_keys(1)", withPragmas("shop.db?_pragma=foreign_keys(1)"))
}

func TestConstraintName(t *testing.T) {
	assert.Equal(t, "products.name", constraintName("constraint failed: UNIQUE constraint failed: products.name (2067)"))
	assert.Equal(t, "stock_level >= 0", constraintName("constraint failed: CHECK constraint failed: stock_level >= 0 (275)"))
	assert.Empty(t, constraintName("disk I/O error"))
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, 10)
	svc := f.orders(t)
	ctx := context.Background()

	result, err := svc.PlaceOrder(ctx, f.request("ada@example.com", 3))
	require.NoError(t, err)

	assert.Equal(t, 7, f.stock(t))
	assert.Equal(t, 1, f.count(t, "orders"))
	assert.Equal(t, 1, f.count(t, "order_items"))

	v, err := svc.GetOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("9.99").Equal(v.Items[0].Price))
	assert.True(t, decimal.RequireFromString("29.97").Equal(v.Order.TotalPrice))
	assert.Equal(t, result.Order.CreatedAt, v.Order.CreatedAt)
	require.NotNil(t, v.Customer)
	assert.Equal(t, "555-0100", v.Customer.Phone)
}

func TestPlaceOrder_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.orders(t).PlaceOrder(context.Background(), f.request("ada@example.com", 15))

	var isErr *order.InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, f.product.ID, isErr.ProductID)
	assert.Equal(t, 10, f.stock(t))
	assert.Zero(t, f.count(t, "orders"))
	assert.Zero(t, f.count(t, "order_items"))
	assert.Zero(t, f.count(t, "customers"))
}

func TestPlaceOrder_SecondLineFailureRollsBackFirst(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	bread := product.Product{Name: "Bread", Price: decimal.NewFromInt(3)}
	require.NoError(t, NewProductRepository(f.db).Create(ctx, &bread))
	require.NoError(t, NewInventoryRepository(f.db).Create(ctx,
		&inventory.Inventory{ProductID: bread.ID, StoreID: f.store.ID, StockLevel: 1}))

	req := f.request("ada@example.com", 2)
	req.Items = append(req.Items, order.LineItem{ProductID: bread.ID, Quantity: 2, Price: decimal.NewFromInt(3)})

	_, err := f.orders(t).PlaceOrder(ctx, req)
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 10, f.stock(t))
	assert.Zero(t, f.count(t, "orders"))
}

func TestPlaceOrder_ReusesCustomer(t *testing.T) {
	f := newFixture(t, 10)
	svc := f.orders(t)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, f.request("ada@example.com", 1))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, f.request("Ada@Example.com", 1))
	require.NoError(t, err)

	assert.Equal(t, first.Customer.ID, second.Customer.ID)
	assert.False(t, second.CustomerCreated)
	assert.Equal(t, 1, f.count(t, "customers"))
}

func TestPlaceOrder_UnknownStoreCreatesNothing(t *testing.T) {
	f := newFixture(t, 10)
	req := f.request("ada@example.com", 1)
	req.StoreID = f.store.ID + 1

	_, err := f.orders(t).PlaceOrder(context.Background(), req)

	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "store", nf.Entity)
	assert.Zero(t, f.count(t, "customers"))
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t, 4)
	svc := f.orders(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), f.request(fmt.Sprintf("b%d@example.com", i), 1))
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, succeeded)
	assert.Zero(t, f.stock(t))
}

func TestProductRepository(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	repo := NewProductRepository(f.db)

	t.Run("duplicate name", func(t *testing.T) {
		err := repo.Create(ctx, &product.Product{Name: "Milk", Price: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
	})

	t.Run("update missing", func(t *testing.T) {
		err := repo.Update(ctx, &product.Product{ID: 999, Name: "Ghost", Price: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("search", func(t *testing.T) {
		bread := product.Product{Name: "Rye Bread", Category: "bakery", Price: decimal.RequireFromString("4.20"), SKU: "BRD-2"}
		require.NoError(t, repo.Create(ctx, &bread))

		all, err := repo.Search(ctx, product.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		name := "bread"
		got, err := repo.Search(ctx, product.Filter{Name: &name})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Rye Bread", got[0].Name)

		minPrice := decimal.RequireFromString("10")
		got, err = repo.Search(ctx, product.Filter{MinPrice: &minPrice})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, f.product.ID, got[0].ID)
		assert.True(t, decimal.RequireFromString("12.50").Equal(got[0].Price))

		storeID := f.store.ID
		sku := "BRD-2"
		got, err = repo.Search(ctx, product.Filter{StoreID: &storeID, SKU: &sku})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("search name wildcards are literal", func(t *testing.T) {
		bag := product.Product{Name: "50% Off Bag", Category: "promo", Price: decimal.RequireFromString("1.00"), SKU: "BAG-3"}
		require.NoError(t, repo.Create(ctx, &bag))

		underscore := "_"
		got, err := repo.Search(ctx, product.Filter{Name: &underscore})
		require.NoError(t, err)
		assert.Empty(t, got)

		percent := "%"
		got, err = repo.Search(ctx, product.Filter{Name: &percent})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "50% Off Bag", got[0].Name)

		upper := "OFF"
		got, err = repo.Search(ctx, product.Filter{Name: &upper})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, bag.ID, got[0].ID)
	})

	t.Run("delete referenced by order", func(t *testing.T) {
		_, err := f.orders(t).PlaceOrder(ctx, f.request("ada@example.com", 1))
		require.NoError(t, err)

		err = repo.Delete(ctx, f.product.ID)
		assert.ErrorIs(t, err, apperr.ErrIntegrityViolation)
		assert.Equal(t, 9, f.stock(t))
	})
}

func TestProductRepository_DeleteCascadesInventory(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	repo := NewProductRepository(f.db)

	require.NoError(t, repo.Delete(ctx, f.product.ID))
	assert.Zero(t, f.count(t, "inventory"))
	assert.ErrorIs(t, repo.Delete(ctx, f.product.ID), apperr.ErrNotFound)
}

func TestInventoryService(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	products := NewProductRepository(f.db)
	svc := inventory.NewService(NewInventoryRepository(f.db), products, store.NewService(NewStoreRepository(f.db)))

	t.Run("duplicate pair keeps existing row", func(t *testing.T) {
		err := svc.Create(ctx, &inventory.Inventory{ProductID: f.product.ID, StoreID: f.store.ID, StockLevel: 99})
		assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
		assert.Equal(t, 10, f.stock(t))
	})

	t.Run("negative stock rejected by constraint", func(t *testing.T) {
		err := NewInventoryRepository(f.db).Replace(ctx,
			&inventory.Inventory{ProductID: f.product.ID, StoreID: f.store.ID, StockLevel: -1}, nil)
		assert.ErrorIs(t, err, apperr.ErrIntegrityViolation)
	})

	t.Run("update with product", func(t *testing.T) {
		p := f.product
		p.Name = "Whole Milk"
		inv, err := svc.Update(ctx, inventory.UpdateRequest{
			ProductID: f.product.ID, StoreID: f.store.ID, StockLevel: 25, Product: &p,
		})
		require.NoError(t, err)
		assert.Equal(t, 25, inv.StockLevel)

		got, err := products.GetByID(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Whole Milk", got.Name)
	})

	t.Run("update rejects invalid product", func(t *testing.T) {
		p := f.product
		p.Name = "Whole Milk"
		p.Price = decimal.NewFromInt(-1)
		_, err := svc.Update(ctx, inventory.UpdateRequest{
			ProductID: f.product.ID, StoreID: f.store.ID, StockLevel: 3, Product: &p,
		})
		var priceErr *product.InvalidPriceError
		assert.ErrorAs(t, err, &priceErr)

		got, err := products.GetByID(ctx, f.product.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("12.50").Equal(got.Price))
		assert.Equal(t, 25, f.stock(t))
	})

	t.Run("has stock", func(t *testing.T) {
		ok, err := svc.HasStock(ctx, f.product.ID, f.store.ID, 25)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.HasStock(ctx, f.product.ID, f.store.ID+1, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		for _, qty := range []int{0, -5} {
			_, err = svc.HasStock(ctx, f.product.ID, f.store.ID, qty)
			assert.ErrorIs(t, err, inventory.ErrNonPositiveQuantity)
		}
	})

	t.Run("store products", func(t *testing.T) {
		got, err := svc.StoreProducts(ctx, f.store.ID, nil, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, f.product.ID, got[0].ID)
	})

	t.Run("delete by product", func(t *testing.T) {
		require.NoError(t, svc.DeleteByProduct(ctx, f.product.ID))
		assert.Zero(t, f.count(t, "inventory"))
		assert.Equal(t, 1, f.count(t, "products"))
	})
}

func TestReviewRepository(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	repo := NewReviewRepository(f.db)

	placed, err := f.orders(t).PlaceOrder(ctx, f.request("ada@example.com", 1))
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &review.Review{
		StoreID: f.store.ID, ProductID: f.product.ID, CustomerID: placed.Customer.ID, Rating: 5, Comment: "great",
	}))
	require.NoError(t, repo.Create(ctx, &review.Review{
		StoreID: f.store.ID, ProductID: f.product.ID, Rating: 2, Comment: "sour",
	}))

	got, err := review.NewService(repo).List(ctx, f.store.ID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].CustomerName)
	assert.Equal(t, review.UnknownCustomer, got[1].CustomerName)
}
