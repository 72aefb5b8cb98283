package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/store"
)

var _ store.Repository = (*StoreRepository)(nil)

type storeRow struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Address string `db:"address"`
}

func (r storeRow) toDomain() store.Store {
	return store.Store{ID: r.ID, Name: r.Name, Address: r.Address}
}

// StoreRepository implements store.Repository on SQLite.
type StoreRepository struct {
	db *sqlx.DB
}

// NewStoreRepository returns a StoreRepository that uses db.
func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(ctx context.Context, s *store.Store) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO stores (name, address) VALUES (?, ?)`, s.Name, s.Address)
	if err != nil {
		return fmt.Errorf("creating store %q: %w", s.Name, translateError(err, "store", ""))
	}
	s.ID, err = lastInsertID(res)
	return err
}

func (r *StoreRepository) GetByID(ctx context.Context, id int64) (*store.Store, error) {
	return getStore(ctx, r.db, id)
}

func (r *StoreRepository) List(ctx context.Context) ([]store.Store, error) {
	var rows []storeRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, address FROM stores ORDER BY id`); err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	out := make([]store.Store, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func getStore(ctx context.Context, q querier, id int64) (*store.Store, error) {
	var row storeRow
	err := q.GetContext(ctx, &row, `SELECT id, name, address FROM stores WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("store", id)
		}
		return nil, fmt.Errorf("getting store %d: %w", id, err)
	}
	s := row.toDomain()
	return &s, nil
}
