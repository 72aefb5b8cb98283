package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
)

const (
	customerColumns = `id, name, email, phone`

	findCustomerByEmailSQL = `SELECT ` + customerColumns + ` FROM customers WHERE LOWER(email) = LOWER(?)`
)

var _ customer.Repository = (*CustomerRepository)(nil)

type customerRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
	Phone string `db:"phone"`
}

// CustomerRepository implements customer.Repository on SQLite.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository returns a CustomerRepository that uses db.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	return getCustomer(ctx, r.db, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return getCustomer(ctx, r.db, findCustomerByEmailSQL, email)
}

func getCustomer(ctx context.Context, q querier, query string, key any) (*customer.Customer, error) {
	var row customerRow
	if err := q.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("customer", key)
		}
		return nil, fmt.Errorf("getting customer %v: %w", key, err)
	}
	return &customer.Customer{ID: row.ID, Name: row.Name, Email: row.Email, Phone: row.Phone}, nil
}

// saveCustomer inserts c or loads the existing customer with the same email
// into c.
func saveCustomer(ctx context.Context, q querier, c *customer.Customer) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		c.Name, c.Email, c.Phone)
	if err != nil {
		return fmt.Errorf("inserting customer %q: %w", c.Email, translateError(err, "customer", c.Email))
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		c.ID, err = lastInsertID(res)
		return err
	}

	existing, err := getCustomer(ctx, q, findCustomerByEmailSQL, c.Email)
	if err != nil {
		return err
	}
	*c = *existing
	return nil
}
