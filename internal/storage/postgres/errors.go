package postgres

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/storefront/internal/domain/apperr"
)

const (
	uniqueViolation       = "23505"
	integrityViolationCls = "23"
)

// translateError maps constraint failures reported by PostgreSQL onto the
// apperr kinds. entity and key describe the row being written and are used
// for unique violations only. Other errors are returned unchanged.
func translateError(err error, entity string, key any) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == uniqueViolation:
		return apperr.Duplicate(entity, key)
	case strings.HasPrefix(pgErr.Code, integrityViolationCls):
		return &apperr.IntegrityError{Constraint: pgErr.ConstraintName, Err: pgErr}
	default:
		return err
	}
}
