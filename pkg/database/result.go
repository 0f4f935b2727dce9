package database

import (
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Result is the explicit outcome of a facade operation.
type Result struct {
	OK   bool
	Kind dberrors.ErrorKind
	Err  error
}

// Succeeded returns a successful Result.
func Succeeded() Result {
	return Result{OK: true}
}

// Failed returns a failed Result classified by err. Unclassified errors
// are reported as Internal.
func Failed(err error) Result {
	kind := dberrors.KindOf(err)
	if kind == 0 {
		kind = dberrors.Internal
	}
	return Result{Kind: kind, Err: err}
}

// Error returns the failure message, or "".
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
