package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/review"
)

const listReviewsSQL = `SELECT r.id, r.store_id, r.product_id, COALESCE(r.customer_id, 0), COALESCE(c.name, ''),
		r.rating, r.comment
	FROM reviews r
	LEFT JOIN customers c ON c.id = r.customer_id
	WHERE r.store_id = $1 AND r.product_id = $2
	ORDER BY r.id`

const createReviewSQL = `INSERT INTO reviews (store_id, product_id, customer_id, rating, comment)
	VALUES ($1, $2, NULLIF($3::BIGINT, 0), $4, $5) RETURNING id`

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// ListByStoreAndProduct returns the reviews of a product in a store.
func (r *ReviewRepository) ListByStoreAndProduct(ctx context.Context, storeID, productID int64) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsSQL, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (review.Review, error) {
		var rv review.Review
		err := row.Scan(&rv.ID, &rv.StoreID, &rv.ProductID, &rv.CustomerID, &rv.CustomerName, &rv.Rating, &rv.Comment)
		return rv, err
	})
}

// Create inserts rv and assigns its ID. A zero CustomerID stores no author.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	err := r.pool.QueryRow(ctx, createReviewSQL, rv.StoreID, rv.ProductID, rv.CustomerID, rv.Rating, rv.Comment).
		Scan(&rv.ID)
	if err != nil {
		return fmt.Errorf("creating review: %w", translateError(err, "review", ""))
	}
	return nil
}
