package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/store"
)

const (
	createStoreSQL  = `INSERT INTO stores (name, address) VALUES ($1, $2) RETURNING id`
	getStoreByIDSQL = `SELECT id, name, address FROM stores WHERE id = $1`
	listStoresSQL   = `SELECT id, name, address FROM stores ORDER BY id`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// Create inserts s and assigns its ID.
func (r *StoreRepository) Create(ctx context.Context, s *store.Store) error {
	if err := r.pool.QueryRow(ctx, createStoreSQL, s.Name, s.Address).Scan(&s.ID); err != nil {
		return fmt.Errorf("creating store %q: %w", s.Name, translateError(err, "store", ""))
	}
	return nil
}

// GetByID returns a single store by its identifier.
func (r *StoreRepository) GetByID(ctx context.Context, id int64) (*store.Store, error) {
	return getStore(ctx, r.pool, id)
}

// List returns all stores ordered by ID.
func (r *StoreRepository) List(ctx context.Context) ([]store.Store, error) {
	rows, err := r.pool.Query(ctx, listStoresSQL)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	return pgx.CollectRows(rows, scanStore)
}

func getStore(ctx context.Context, q querier, id int64) (*store.Store, error) {
	rows, err := q.Query(ctx, getStoreByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting store %d: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanStore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("store", id)
		}
		return nil, fmt.Errorf("getting store %d: %w", id, err)
	}
	return &s, nil
}

func scanStore(row pgx.CollectableRow) (store.Store, error) {
	var s store.Store
	err := row.Scan(&s.ID, &s.Name, &s.Address)
	return s, err
}
