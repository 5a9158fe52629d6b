package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// SQLSTATE codes that indicate an integrity conflict.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrNotNullViolation    = "23502"
	pgErrCheckViolation      = "23514"
)

// pgClassDataException covers values Postgres refuses to store, such as NUL
// bytes in text or out-of-range numbers.
const pgClassDataException = "22"

// storeError maps a pgx error to the error taxonomy. Integrity conflicts become
// ConstraintViolation and rejected values ValidationError. Anything else is
// StorageUnavailable.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation, pgErrForeignKeyViolation, pgErrNotNullViolation, pgErrCheckViolation:
			return apperrors.NewConstraintViolation(op, pgErr.ConstraintName, err)
		}
		if strings.HasPrefix(pgErr.Code, pgClassDataException) {
			return apperrors.NewInvalidValue(op, pgErr.ColumnName, err)
		}
	}
	return apperrors.NewStorageUnavailable(op, err)
}
