package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"smartgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// MapError translates driver errors into sentinel errors. Unique violations
// from either driver become a sentinel conflict naming the violated constraint.
// Other errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return sentinel.Conflict(pqErr.Constraint)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return sentinel.Conflict(pgErr.ConstraintName)
	}
	return err
}
