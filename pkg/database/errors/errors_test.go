package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		InitializationError:   "InitializationError",
		NotReady:              "NotReady",
		TransactionFailure:    "TransactionFailure",
		NotFound:              "NotFound",
		DuplicateRegistration: "DuplicateRegistration",
		InvalidArgument:       "InvalidArgument",
		Internal:              "Internal",
		ErrorKind(99):         "ErrorKind(99)",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestDatabaseErrorMessage(t *testing.T) {
	err := NewNotReadyError("stats")
	assert.Equal(t, "NotReady: stats: not initialized", err.Error())

	wrapped := NewInternalError(stderrors.New("disk I/O error"), "query failed")
	assert.Equal(t, "Internal: query failed: disk I/O error", wrapped.Error())
}

func TestIsMatchesByKind(t *testing.T) {
	cause := stderrors.New("constraint failed")
	err := fmt.Errorf("insert photo: %w", NewTransactionError(cause))

	assert.True(t, IsKind(err, TransactionFailure))
	assert.False(t, IsKind(err, NotReady))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, TransactionFailure, KindOf(err))
}

func TestNestedTransactionCause(t *testing.T) {
	err := NewTransactionError(ErrNestedTransaction)
	assert.ErrorIs(t, err, ErrNestedTransaction)
	assert.True(t, IsKind(err, TransactionFailure))
}

func TestInTransactionError(t *testing.T) {
	err := NewInTransactionError("optimize")
	assert.ErrorIs(t, err, ErrInTransaction)
	assert.True(t, IsKind(err, TransactionFailure))
	assert.Contains(t, err.Error(), "optimize")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(0), KindOf(stderrors.New("plain")))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
	assert.False(t, IsNotFound(nil))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("component", "theme")))
	assert.True(t, IsNotReady(NewNotReadyError("optimize")))
	assert.True(t, IsKind(NewDuplicateRegistrationError("theme"), DuplicateRegistration))
	assert.True(t, IsKind(NewInvalidArgumentError("unknown table %q", "x"), InvalidArgument))
	assert.Contains(t, NewInvalidArgumentError("unknown table %q", "x").Error(), `unknown table "x"`)
	assert.True(t, IsKind(NewInitializationError(nil, "open"), InitializationError))
}
