package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// translateError maps engine errors onto the error taxonomy so raw driver
// errors never leave the package.
func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var dbErr *dberrors.DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return dberrors.Wrap(dberrors.NotFound, err, operation+": record not found")
	case errors.Is(err, gorm.ErrInvalidData), errors.Is(err, gorm.ErrInvalidField),
		errors.Is(err, gorm.ErrPrimaryKeyRequired), errors.Is(err, gorm.ErrMissingWhereClause):
		return dberrors.Wrap(dberrors.InvalidArgument, err, operation)
	case isUniqueConstraintError(err):
		return dberrors.Wrap(dberrors.InvalidArgument, err, operation+": unique constraint violated")
	default:
		return dberrors.NewInternalError(err, operation)
	}
}

// isUniqueConstraintError checks SQLite and PostgreSQL unique violation messages.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func invalidf(format string, args ...any) error {
	return dberrors.NewInvalidArgumentError(format, args...)
}
