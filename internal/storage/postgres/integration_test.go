//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	url := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url, PoolOptions{MaxConns: 16})
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Applying the schema twice must be harmless.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations (second run): %v", err)
	}

	return m.Run()
}

func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE reviews, order_items, orders, inventory, products, customers, stores RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

type fixture struct {
	store   store.Store
	product product.Product
}

func seedFixture(t *testing.T, stock int) fixture {
	t.Helper()
	ctx := context.Background()

	s := store.Store{Name: "Downtown", Address: "1 Main St"}
	require.NoError(t, NewStoreRepository(testPool).Create(ctx, &s))

	p := product.Product{Name: "Milk", Category: "dairy", Price: decimal.RequireFromString("12.50"), SKU: "MLK-1"}
	require.NoError(t, NewProductRepository(testPool).Create(ctx, &p))

	inv := inventory.Inventory{ProductID: p.ID, StoreID: s.ID, StockLevel: stock}
	require.NoError(t, NewInventoryRepository(testPool).Create(ctx, &inv))

	return fixture{store: s, product: p}
}

func newOrderService(t *testing.T) *order.Service {
	t.Helper()
	svc, err := order.NewService(
		NewUnitOfWork(testPool),
		NewOrderRepository(testPool),
		NewCustomerRepository(testPool),
		tracenoop.NewTracerProvider(),
		metricnoop.NewMeterProvider(),
	)
	require.NoError(t, err)
	return svc
}

func orderRequest(email string, storeID, productID int64, qty int) order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		CustomerName:  "Ada",
		CustomerEmail: email,
		StoreID:       storeID,
		TotalPrice:    decimal.RequireFromString("29.97"),
		Items: []order.LineItem{
			{ProductID: productID, Quantity: qty, Price: decimal.RequireFromString("9.99")},
		},
	}
}

func countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, testPool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func stockOf(t *testing.T, f fixture) int {
	t.Helper()
	inv, err := NewInventoryRepository(testPool).Find(context.Background(), f.product.ID, f.store.ID)
	require.NoError(t, err)
	return inv.StockLevel
}

func TestPlaceOrder_CommitsAllRows(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	svc := newOrderService(t)
	ctx := context.Background()

	result, err := svc.PlaceOrder(ctx, orderRequest("ada@example.com", f.store.ID, f.product.ID, 3))
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, f))
	assert.Equal(t, 1, countRows(t, "orders"))
	assert.Equal(t, 1, countRows(t, "order_items"))

	v, err := svc.GetOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("9.99").Equal(v.Items[0].Price))
	assert.True(t, decimal.RequireFromString("29.97").Equal(v.Order.TotalPrice))
	require.NotNil(t, v.Customer)
	assert.Equal(t, "ada@example.com", v.Customer.Email)
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	svc := newOrderService(t)

	_, err := svc.PlaceOrder(context.Background(), orderRequest("ada@example.com", f.store.ID, f.product.ID, 15))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	assert.Equal(t, 10, stockOf(t, f))
	assert.Zero(t, countRows(t, "orders"))
	assert.Zero(t, countRows(t, "order_items"))
	assert.Zero(t, countRows(t, "customers"))
}

func TestPlaceOrder_UnknownStore(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	svc := newOrderService(t)

	_, err := svc.PlaceOrder(context.Background(), orderRequest("ada@example.com", f.store.ID+100, f.product.ID, 1))
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, countRows(t, "customers"))
	assert.Zero(t, countRows(t, "orders"))
}

func TestPlaceOrder_SameEmailReusesCustomer(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	svc := newOrderService(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, orderRequest("ada@example.com", f.store.ID, f.product.ID, 1))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, orderRequest("ADA@example.com", f.store.ID, f.product.ID, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, "customers"))
	assert.Equal(t, 2, countRows(t, "orders"))
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 5)
	svc := newOrderService(t)

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := fmt.Sprintf("buyer%d@example.com", i%3)
			_, err := svc.PlaceOrder(context.Background(), orderRequest(email, f.store.ID, f.product.ID, 1))
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

	assert.Equal(t, 5, succeeded)
	assert.Zero(t, stockOf(t, f))
	assert.Equal(t, 5, countRows(t, "orders"))
	assert.LessOrEqual(t, countRows(t, "customers"), 3)
}

func TestProductRepository_Constraints(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	ctx := context.Background()
	products := NewProductRepository(testPool)

	dup := product.Product{Name: "Milk", Price: decimal.NewFromInt(1)}
	err := products.Create(ctx, &dup)
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)

	missing := product.Product{ID: f.product.ID + 100, Name: "Ghost", Price: decimal.NewFromInt(1)}
	assert.ErrorIs(t, products.Update(ctx, &missing), apperr.ErrNotFound)

	// Ordered products are kept by the order_items foreign key.
	_, err = newOrderService(t).PlaceOrder(ctx, orderRequest("ada@example.com", f.store.ID, f.product.ID, 1))
	require.NoError(t, err)
	err = products.Delete(ctx, f.product.ID)
	assert.ErrorIs(t, err, apperr.ErrIntegrityViolation)
	assert.Equal(t, 9, stockOf(t, f))
}

func TestProductRepository_DeleteCascadesInventory(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	ctx := context.Background()
	products := NewProductRepository(testPool)

	require.NoError(t, products.Delete(ctx, f.product.ID))
	assert.Zero(t, countRows(t, "inventory"))
	assert.ErrorIs(t, products.Delete(ctx, f.product.ID), apperr.ErrNotFound)
}

func TestProductRepository_Search(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	ctx := context.Background()
	products := NewProductRepository(testPool)

	bread := product.Product{Name: "Sourdough Bread", Category: "bakery", Price: decimal.RequireFromString("4.20")}
	require.NoError(t, products.Create(ctx, &bread))

	all, err := products.Search(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	name := "BREAD"
	got, err := products.Search(ctx, product.Filter{Name: &name})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bread.ID, got[0].ID)

	storeID := f.store.ID
	got, err = products.Search(ctx, product.Filter{StoreID: &storeID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.product.ID, got[0].ID)
	assert.True(t, decimal.RequireFromString("12.50").Equal(got[0].Price))

	maxPrice := decimal.RequireFromString("5")
	got, err = products.Search(ctx, product.Filter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bread.ID, got[0].ID)
}

func TestInventoryRepository_ReplaceWithProduct(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	ctx := context.Background()
	repo := NewInventoryRepository(testPool)

	inv, err := repo.Find(ctx, f.product.ID, f.store.ID)
	require.NoError(t, err)

	dup := inventory.Inventory{ProductID: f.product.ID, StoreID: f.store.ID, StockLevel: 1}
	assert.ErrorIs(t, repo.Create(ctx, &dup), apperr.ErrDuplicateKey)

	inv.StockLevel = 42
	renamed := f.product
	renamed.Name = "Whole Milk"
	require.NoError(t, repo.Replace(ctx, inv, &renamed))

	assert.Equal(t, 42, stockOf(t, f))
	p, err := NewProductRepository(testPool).GetByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Whole Milk", p.Name)

	// A failing product update leaves the stock level untouched.
	inv.StockLevel = 1
	ghost := renamed
	ghost.ID += 100
	assert.ErrorIs(t, repo.Replace(ctx, inv, &ghost), apperr.ErrNotFound)
	assert.Equal(t, 42, stockOf(t, f))

	n, err := repo.DeleteByProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReviewRepository_UnknownCustomer(t *testing.T) {
	resetTables(t)
	f := seedFixture(t, 10)
	ctx := context.Background()
	reviews := NewReviewRepository(testPool)

	rv := review.Review{StoreID: f.store.ID, ProductID: f.product.ID, Rating: 4, Comment: "fresh"}
	require.NoError(t, reviews.Create(ctx, &rv))

	got, err := review.NewService(reviews).List(ctx, f.store.ID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, review.UnknownCustomer, got[0].CustomerName)
	assert.Equal(t, 4, got[0].Rating)
}
