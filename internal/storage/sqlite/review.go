package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xenking/storefront/internal/domain/review"
)

var _ review.Repository = (*ReviewRepository)(nil)

type reviewRow struct {
	ID           int64  `db:"id"`
	StoreID      int64  `db:"store_id"`
	ProductID    int64  `db:"product_id"`
	CustomerID   int64  `db:"customer_id"`
	CustomerName string `db:"customer_name"`
	Rating       int    `db:"rating"`
	Comment      string `db:"comment"`
}

// ReviewRepository implements review.Repository on SQLite.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository returns a ReviewRepository that uses db.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) ListByStoreAndProduct(ctx context.Context, storeID, productID int64) ([]review.Review, error) {
	var rows []reviewRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.store_id, r.product_id,
		       COALESCE(r.customer_id, 0) AS customer_id,
		       COALESCE(c.name, '') AS customer_name,
		       r.rating, r.comment
		FROM reviews r
		LEFT JOIN customers c ON c.id = r.customer_id
		WHERE r.store_id = ? AND r.product_id = ?
		ORDER BY r.id`, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	out := make([]review.Review, len(rows))
	for i, row := range rows {
		out[i] = review.Review(row)
	}
	return out, nil
}

// Create inserts rv and assigns its ID. A zero CustomerID stores no author.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (store_id, product_id, customer_id, rating, comment) VALUES (?, ?, NULLIF(?, 0), ?, ?)`,
		rv.StoreID, rv.ProductID, rv.CustomerID, rv.Rating, rv.Comment)
	if err != nil {
		return fmt.Errorf("creating review: %w", translateError(err, "review", ""))
	}
	rv.ID, err = lastInsertID(res)
	return err
}
