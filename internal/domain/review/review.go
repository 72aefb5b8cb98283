// Package review lists customer reviews of products sold in a store.
package review

import "context"

// UnknownCustomer is reported as the author of reviews whose customer no
// longer exists.
const UnknownCustomer = "Unknown"

// Review is a customer's rating of a product bought in a store.
type Review struct {
	ID           int64
	StoreID      int64
	ProductID    int64
	CustomerID   int64
	CustomerName string
	Rating       int
	Comment      string
}

// Repository defines read operations for reviews.
type Repository interface {
	// ListByStoreAndProduct returns reviews with CustomerName resolved, empty
	// when the customer row is gone.
	ListByStoreAndProduct(ctx context.Context, storeID, productID int64) ([]Review, error)
}

// Service resolves review listings.
type Service struct {
	repo Repository
}

// NewService creates a review Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the reviews of productID in storeID.
func (s *Service) List(ctx context.Context, storeID, productID int64) ([]Review, error) {
	reviews, err := s.repo.ListByStoreAndProduct(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		if reviews[i].CustomerName == "" {
			reviews[i].CustomerName = UnknownCustomer
		}
	}
	return reviews, nil
}
