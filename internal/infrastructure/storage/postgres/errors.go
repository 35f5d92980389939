package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"stockflow/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateQueryCanceled        = "57014"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsConcurrencyFailure reports whether err is a deadlock or serialization failure.
// The transaction was aborted by the server and nothing was written.
func IsConcurrencyFailure(err error) bool {
	switch pgCode(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	return false
}

// MapError translates constraint violations into domain errors. Other errors are
// returned unchanged and surface as transaction failures.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case sqlStateUniqueViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return apperror.NewDuplicate(entity, field, "").WithCause(err).
			WithDetail("constraint", pgErr.ConstraintName)
	case sqlStateForeignKeyViolation:
		return apperror.NewValidation(entity+" references a missing record").WithCause(err).
			WithDetail("constraint", pgErr.ConstraintName)
	case sqlStateCheckViolation:
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, entity+" violates a data constraint").
			WithCause(err).WithDetail("constraint", pgErr.ConstraintName)
	case sqlStateLockNotAvailable, sqlStateQueryCanceled:
		return apperror.NewConflict(entity + " is locked by another operation, try again").WithCause(err)
	}
	if IsConcurrencyFailure(err) {
		return fmt.Errorf("%s: aborted by concurrent transaction: %w", entity, err)
	}
	return err
}
