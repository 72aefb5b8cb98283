// Package apperr defines the error kinds shared by every storefront domain
// package. Concrete errors carry context (entity, key, constraint) and match
// their kind with errors.Is.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is the kind of every "entity does not exist" failure.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is the kind of natural-key uniqueness violations.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInsufficientStock is the kind of stock check failures.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrIntegrityViolation is the kind of other constraint failures reported
	// by the database (foreign keys, checks).
	ErrIntegrityViolation = errors.New("integrity violation")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

// NotFound returns a NotFoundError for entity identified by key.
func NotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateKeyError reports an attempt to create an entity whose natural key
// is already taken.
type DuplicateKeyError struct {
	Entity string
	Key    string
}

// Duplicate returns a DuplicateKeyError for entity with natural key key.
func Duplicate(entity string, key any) *DuplicateKeyError {
	return &DuplicateKeyError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *DuplicateKeyError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s already exists", e.Entity)
	}
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Key)
}

// Is reports whether target is ErrDuplicateKey.
func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// IntegrityError wraps a database constraint failure. The driver message is
// kept verbatim.
type IntegrityError struct {
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("data integrity error: %v", e.Err)
	}
	return fmt.Sprintf("data integrity error (%s): %v", e.Constraint, e.Err)
}

// Is reports whether target is ErrIntegrityViolation.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrityViolation }

func (e *IntegrityError) Unwrap() error { return e.Err }
