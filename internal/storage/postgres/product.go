package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	productColumns = `p.id, p.name, p.category, p.price, p.sku`

	createProductSQL = `INSERT INTO products (name, category, price, sku) VALUES ($1, $2, $3, $4) RETURNING id`

	updateProductSQL = `UPDATE products SET name = $2, category = $3, price = $4, sku = $5 WHERE id = $1`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	findProductByNameSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.name = $1`

	deleteProductInventorySQL = `DELETE FROM inventory WHERE product_id = $1`
	deleteProductSQL          = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p and assigns its ID. A taken name is reported as
// apperr.ErrDuplicateKey.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL, p.Name, p.Category, p.Price, p.SKU).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, translateError(err, "product", fmt.Sprintf("%q", p.Name)))
	}
	return nil
}

// Update overwrites the product identified by p.ID.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return updateProduct(ctx, r.pool, p)
}

// Delete removes the product and its inventory rows in one transaction.
// Products referenced by order items cannot be deleted.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteProductInventorySQL, id); err != nil {
			return fmt.Errorf("deleting inventory of product %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx, deleteProductSQL, id)
		if err != nil {
			return fmt.Errorf("deleting product %d: %w", id, translateError(err, "product", id))
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("product", id)
		}
		return nil
	})
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return getProduct(ctx, r.pool, getProductByIDSQL, id)
}

// FindByName returns the product with exactly the given name.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*product.Product, error) {
	return getProduct(ctx, r.pool, findProductByNameSQL, name)
}

// Search returns the products matching f ordered by ID.
func (r *ProductRepository) Search(ctx context.Context, f product.Filter) ([]product.Product, error) {
	sql, args := buildSearch(f)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// buildSearch renders the product search query. Every non-nil filter field
// adds one predicate.
func buildSearch(f product.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != nil {
		add(`p.name ILIKE $%d ESCAPE '\'`, product.NamePattern(*f.Name))
	}
	if f.Category != nil {
		add(`p.category = $%d`, *f.Category)
	}
	if f.SKU != nil {
		add(`p.sku = $%d`, *f.SKU)
	}
	if f.MinPrice != nil {
		add(`p.price >= $%d`, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add(`p.price <= $%d`, *f.MaxPrice)
	}
	if f.StoreID != nil {
		add(`EXISTS (SELECT 1 FROM inventory i WHERE i.product_id = p.id AND i.store_id = $%d)`, *f.StoreID)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + productColumns + ` FROM products p`)
	if len(where) > 0 {
		b.WriteString(` WHERE `)
		b.WriteString(strings.Join(where, ` AND `))
	}
	b.WriteString(` ORDER BY p.id`)
	return b.String(), args
}

func getProduct(ctx context.Context, q querier, sql string, key any) (*product.Product, error) {
	rows, err := q.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("getting product %v: %w", key, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("product", key)
		}
		return nil, fmt.Errorf("getting product %v: %w", key, err)
	}
	return &p, nil
}

func updateProduct(ctx context.Context, q querier, p *product.Product) error {
	tag, err := q.Exec(ctx, updateProductSQL, p.ID, p.Name, p.Category, p.Price, p.SKU)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, translateError(err, "product", fmt.Sprintf("%q", p.Name)))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.SKU)
	return p, err
}
