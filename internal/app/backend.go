package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/sqlite"
)

// backend is one storage implementation of every repository the services
// need.
type backend struct {
	uow       order.UnitOfWork
	orders    order.Repository
	customers customer.Repository
	stores    store.Repository
	products  product.Repository
	inventory inventory.Repository
	reviews   review.Repository

	ping  func(ctx context.Context) error
	close func()
}

// openBackend connects to the configured database and brings its schema up
// to date.
func openBackend(ctx context.Context, cfg DatabaseConfig) (*backend, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.URL, postgres.PoolOptions{
			MaxConns: int32(cfg.MaxConns),
			MinConns: int32(cfg.MinConns),
		})
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &backend{
			uow:       postgres.NewUnitOfWork(pool),
			orders:    postgres.NewOrderRepository(pool),
			customers: postgres.NewCustomerRepository(pool),
			stores:    postgres.NewStoreRepository(pool),
			products:  postgres.NewProductRepository(pool),
			inventory: postgres.NewInventoryRepository(pool),
			reviews:   postgres.NewReviewRepository(pool),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		if err := sqlite.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &backend{
			uow:       sqlite.NewUnitOfWork(db),
			orders:    sqlite.NewOrderRepository(db),
			customers: sqlite.NewCustomerRepository(db),
			stores:    sqlite.NewStoreRepository(db),
			products:  sqlite.NewProductRepository(db),
			inventory: sqlite.NewInventoryRepository(db),
			reviews:   sqlite.NewReviewRepository(db),
			ping:      db.PingContext,
			close:     func() { _ = db.Close() },
		}, nil
	default:
		return nil, errors.Errorf("unknown database driver %q", cfg.Driver)
	}
}
