package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// ErrNameRequired is returned when a product is saved without a name.
var ErrNameRequired = errors.New("product name required")

// InvalidPriceError indicates a negative product price.
type InvalidPriceError struct {
	Name string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price must not be negative for product %q", e.Name)
}

// Service implements catalog management on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a product Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a new product. A product whose name is already taken is
// rejected with a duplicate key error; the repository constraint catches the
// same condition under concurrency.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := Validate(p); err != nil {
		return err
	}

	existing, err := s.repo.FindByName(ctx, p.Name)
	switch {
	case err == nil:
		return apperr.Duplicate("product", fmt.Sprintf("%q", existing.Name))
	case !errors.Is(err, apperr.ErrNotFound):
		return errors.Wrap(err, "find product by name")
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return errors.Wrap(err, "create product")
	}
	zctx.From(ctx).Info("Product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return nil
}

// Update overwrites the product identified by p.ID.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := Validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return errors.Wrap(err, "update product")
	}
	return nil
}

// Delete removes a product together with its inventory rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	zctx.From(ctx).Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Search lists products matching f.
func (s *Service) Search(ctx context.Context, f Filter) ([]Product, error) {
	return s.repo.Search(ctx, f)
}

// Validate trims the product name and checks the name and price.
func Validate(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.Price.IsNegative() {
		return &InvalidPriceError{Name: p.Name}
	}
	return nil
}
