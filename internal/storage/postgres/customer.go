package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, email, phone FROM customers WHERE id = $1`

	findCustomerByEmailSQL = `SELECT id, name, email, phone FROM customers WHERE LOWER(email) = LOWER($1)`

	// A concurrent insert of the same email leaves RETURNING empty; the caller
	// then reads the committed row.
	insertCustomerSQL = `INSERT INTO customers (name, email, phone) VALUES ($1, $2, $3)
		ON CONFLICT ((LOWER(email))) DO NOTHING
		RETURNING id`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	return queryCustomer(ctx, r.pool, getCustomerByIDSQL, id)
}

// FindByEmail looks up a customer by email, ignoring case.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return queryCustomer(ctx, r.pool, findCustomerByEmailSQL, email)
}

func queryCustomer(ctx context.Context, q querier, sql string, key any) (*customer.Customer, error) {
	rows, err := q.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting customer %v: %w", key, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("customer", key)
		}
		return nil, fmt.Errorf("getting customer %v: %w", key, err)
	}
	return &c, nil
}

// saveCustomer inserts c or, when the email is already taken, loads the
// existing row into c.
func saveCustomer(ctx context.Context, q querier, c *customer.Customer) error {
	err := q.QueryRow(ctx, insertCustomerSQL, c.Name, c.Email, c.Phone).Scan(&c.ID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("inserting customer %q: %w", c.Email, translateError(err, "customer", c.Email))
	}

	existing, err := queryCustomer(ctx, q, findCustomerByEmailSQL, c.Email)
	if err != nil {
		return err
	}
	*c = *existing
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	return c, err
}
