package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `p.id, p.name, p.category, p.price, p.sku`

var _ product.Repository = (*ProductRepository)(nil)

type productRow struct {
	ID       int64           `db:"id"`
	Name     string          `db:"name"`
	Category string          `db:"category"`
	Price    decimal.Decimal `db:"price"`
	SKU      string          `db:"sku"`
}

func (r productRow) toDomain() product.Product {
	return product.Product{ID: r.ID, Name: r.Name, Category: r.Category, Price: r.Price, SKU: r.SKU}
}

// ProductRepository implements product.Repository on SQLite.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository returns a ProductRepository that uses db.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, category, price, sku) VALUES (?, ?, ?, ?)`,
		p.Name, p.Category, p.Price.String(), p.SKU)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, translateError(err, "product", fmt.Sprintf("%q", p.Name)))
	}
	p.ID, err = lastInsertID(res)
	return err
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return updateProduct(ctx, r.db, p)
}

// Delete removes the product and its inventory rows in one transaction.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = ?`, id); err != nil {
		return fmt.Errorf("deleting inventory of product %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, translateError(err, "product", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("product", id)
	}
	return tx.Commit()
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return getProduct(ctx, r.db, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id)
}

func (r *ProductRepository) FindByName(ctx context.Context, name string) (*product.Product, error) {
	return getProduct(ctx, r.db, `SELECT `+productColumns+` FROM products p WHERE p.name = ?`, name)
}

func (r *ProductRepository) Search(ctx context.Context, f product.Filter) ([]product.Product, error) {
	query, args := buildSearch(f)
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	out := make([]product.Product, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// buildSearch renders the product search query. Prices are stored as
// canonical decimal text and compared numerically. SQLite's LOWER folds
// ASCII letters only, so the name match is case-insensitive for ASCII names
// alone ("éclair" does not find "Éclair" here, unlike on PostgreSQL).
func buildSearch(f product.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}

	if f.Name != nil {
		add(`LOWER(p.name) LIKE LOWER(?) ESCAPE '\'`, product.NamePattern(*f.Name))
	}
	if f.Category != nil {
		add(`p.category = ?`, *f.Category)
	}
	if f.SKU != nil {
		add(`p.sku = ?`, *f.SKU)
	}
	if f.MinPrice != nil {
		add(`CAST(p.price AS REAL) >= CAST(? AS REAL)`, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add(`CAST(p.price AS REAL) <= CAST(? AS REAL)`, f.MaxPrice.String())
	}
	if f.StoreID != nil {
		add(`EXISTS (SELECT 1 FROM inventory i WHERE i.product_id = p.id AND i.store_id = ?)`, *f.StoreID)
	}

	query := `SELECT ` + productColumns + ` FROM products p`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	return query + ` ORDER BY p.id`, args
}

func getProduct(ctx context.Context, q querier, query string, key any) (*product.Product, error) {
	var row productRow
	if err := q.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product", key)
		}
		return nil, fmt.Errorf("getting product %v: %w", key, err)
	}
	p := row.toDomain()
	return &p, nil
}

func updateProduct(ctx context.Context, q querier, p *product.Product) error {
	res, err := q.ExecContext(ctx,
		`UPDATE products SET name = ?, category = ?, price = ?, sku = ? WHERE id = ?`,
		p.Name, p.Category, p.Price.String(), p.SKU, p.ID)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, translateError(err, "product", fmt.Sprintf("%q", p.Name)))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("product", p.ID)
	}
	return nil
}
