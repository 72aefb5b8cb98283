package main

import (
	"context"

	"github.com/go-faster/errors"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/sqlite"
)

type reviewRepository interface {
	review.Repository
	Create(ctx context.Context, rv *review.Review) error
}

type database struct {
	stores    store.Repository
	products  product.Repository
	inventory inventory.Repository
	customers customer.Repository
	reviews   reviewRepository
	orders    *order.Service
	close     func()
}

func openDB(ctx context.Context, driver, url string) (*database, error) {
	var (
		db     database
		uow    order.UnitOfWork
		orders order.Repository
	)
	switch driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, url, postgres.PoolOptions{MaxConns: 4})
		if err != nil {
			return nil, errors.Wrap(err, "connect to database")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		db = database{
			stores:    postgres.NewStoreRepository(pool),
			products:  postgres.NewProductRepository(pool),
			inventory: postgres.NewInventoryRepository(pool),
			customers: postgres.NewCustomerRepository(pool),
			reviews:   postgres.NewReviewRepository(pool),
			close:     pool.Close,
		}
		uow, orders = postgres.NewUnitOfWork(pool), postgres.NewOrderRepository(pool)
	case "sqlite":
		conn, err := sqlite.Open(ctx, url)
		if err != nil {
			return nil, errors.Wrap(err, "open database")
		}
		if err := sqlite.RunMigrations(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		db = database{
			stores:    sqlite.NewStoreRepository(conn),
			products:  sqlite.NewProductRepository(conn),
			inventory: sqlite.NewInventoryRepository(conn),
			customers: sqlite.NewCustomerRepository(conn),
			reviews:   sqlite.NewReviewRepository(conn),
			close:     func() { _ = conn.Close() },
		}
		uow, orders = sqlite.NewUnitOfWork(conn), sqlite.NewOrderRepository(conn)
	default:
		return nil, errors.Errorf("unknown driver %q", driver)
	}

	svc, err := order.NewService(uow, orders, db.customers, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		db.close()
		return nil, errors.Wrap(err, "create order service")
	}
	db.orders = svc
	return &db, nil
}
