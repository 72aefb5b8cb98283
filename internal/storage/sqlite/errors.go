package sqlite

import (
	"strings"

	"github.com/go-faster/errors"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// translateError maps SQLite constraint failures onto the apperr kinds, the
// same way the PostgreSQL store does. Other errors are returned unchanged.
func translateError(err error, entity string, key any) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch code := se.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return apperr.Duplicate(entity, key)
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		return &apperr.IntegrityError{Constraint: constraintName(se.Error()), Err: se}
	default:
		return err
	}
}

// constraintName extracts the constraint from driver messages like
// "constraint failed: CHECK constraint failed: stock_level >= 0 (275)".
func constraintName(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	after := msg[i+len(marker):]
	if i := strings.Index(after, " ("); i >= 0 {
		after = after[:i]
	}
	return strings.TrimSpace(after)
}
