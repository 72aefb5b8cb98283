// Package store holds the retail location entity and its service.
package store

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// Store is a physical or logical retail location with its own inventory.
type Store struct {
	ID      int64
	Name    string
	Address string
}

// Repository defines persistence operations for stores.
type Repository interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id int64) (*Store, error)
	List(ctx context.Context) ([]Store, error)
}

// Service exposes store operations to the HTTP layer.
type Service struct {
	repo Repository
}

// NewService creates a store Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new store and assigns its ID.
func (s *Service) Create(ctx context.Context, st *Store) error {
	if err := s.repo.Create(ctx, st); err != nil {
		return errors.Wrap(err, "create store")
	}
	return nil
}

// Get returns the store with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*Store, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all stores.
func (s *Service) List(ctx context.Context) ([]Store, error) {
	return s.repo.List(ctx)
}

// Exists reports whether a store with the given id exists.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
