// Package errors defines the error taxonomy shared by the database store,
// its facade and the component registry. It is a leaf package so every
// layer can classify failures without import cycles.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorKind classifies a failure.
type ErrorKind int

const (
	// InitializationError means a store or component failed to start.
	InitializationError ErrorKind = iota + 1

	// NotReady means an operation ran before a successful initialize or after close.
	NotReady

	// TransactionFailure means a transaction was rolled back or could not start.
	TransactionFailure

	// NotFound means a requested record or component does not exist.
	NotFound

	// DuplicateRegistration means a component name was registered twice.
	DuplicateRegistration

	// InvalidArgument means the caller supplied parameters that cannot be served.
	InvalidArgument

	// Internal wraps engine errors that fit no other kind.
	Internal
)

// String returns the kind name used in logs and API responses.
func (k ErrorKind) String() string {
	switch k {
	case InitializationError:
		return "InitializationError"
	case NotReady:
		return "NotReady"
	case TransactionFailure:
		return "TransactionFailure"
	case NotFound:
		return "NotFound"
	case DuplicateRegistration:
		return "DuplicateRegistration"
	case InvalidArgument:
		return "InvalidArgument"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ErrNestedTransaction is the cause attached when a transaction is started
// from inside another transaction of the same store.
var ErrNestedTransaction = stderrors.New("nested transactions are not supported")

// ErrInTransaction is the cause attached when an operation that needs the
// whole store is called from inside a transaction callback.
var ErrInTransaction = stderrors.New("operation not allowed inside a transaction")

// DatabaseError is a classified failure with an optional cause.
type DatabaseError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *DatabaseError of the same kind, so
// errors.Is(err, &DatabaseError{Kind: NotReady}) matches any NotReady error.
func (e *DatabaseError) Is(target error) bool {
	t, ok := target.(*DatabaseError)
	return ok && t.Kind == e.Kind
}

// New creates a DatabaseError of the given kind.
func New(kind ErrorKind, message string) *DatabaseError {
	return &DatabaseError{Kind: kind, Message: message}
}

// Wrap creates a DatabaseError of the given kind around cause.
func Wrap(kind ErrorKind, cause error, message string) *DatabaseError {
	return &DatabaseError{Kind: kind, Message: message, Cause: cause}
}

// NewInitializationError creates an InitializationError.
func NewInitializationError(cause error, message string) *DatabaseError {
	return Wrap(InitializationError, cause, message)
}

// NewNotReadyError creates a NotReady error for the named operation.
func NewNotReadyError(operation string) *DatabaseError {
	return New(NotReady, fmt.Sprintf("%s: not initialized", operation))
}

// NewTransactionError creates a TransactionFailure around cause.
func NewTransactionError(cause error) *DatabaseError {
	return Wrap(TransactionFailure, cause, "transaction rolled back")
}

// NewInTransactionError creates a TransactionFailure for an operation
// rejected because it was called from inside a transaction callback.
func NewInTransactionError(operation string) *DatabaseError {
	return Wrap(TransactionFailure, ErrInTransaction, operation)
}

// NewNotFoundError creates a NotFound error for a resource of the given type.
func NewNotFoundError(resourceType, name string) *DatabaseError {
	return New(NotFound, fmt.Sprintf("%s %q not found", resourceType, name))
}

// NewDuplicateRegistrationError creates a DuplicateRegistration error.
func NewDuplicateRegistrationError(name string) *DatabaseError {
	return New(DuplicateRegistration, fmt.Sprintf("component %q already registered", name))
}

// NewInvalidArgumentError creates an InvalidArgument error.
func NewInvalidArgumentError(format string, args ...any) *DatabaseError {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

// NewInternalError creates an Internal error around cause.
func NewInternalError(cause error, message string) *DatabaseError {
	return Wrap(Internal, cause, message)
}

// KindOf returns the kind of the first DatabaseError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var dbErr *DatabaseError
	if stderrors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return 0
}

// IsKind reports whether any DatabaseError in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return stderrors.Is(err, &DatabaseError{Kind: kind})
}

// IsNotReady returns true if err is a NotReady error.
func IsNotReady(err error) bool {
	return IsKind(err, NotReady)
}

// IsNotFound returns true if err is a NotFound error.
func IsNotFound(err error) bool {
	return IsKind(err, NotFound)
}
