package database

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

type txKey struct{}

// Tx is the handle passed to a transaction callback. It is valid only while
// the callback runs.
type Tx struct {
	store  *Store
	db     *gorm.DB
	ctx    context.Context
	owner  uint64
	active atomic.Bool
}

// DB returns the GORM handle bound to the transaction.
func (tx *Tx) DB() *gorm.DB {
	return tx.db
}

// Context returns a context carrying the transaction. Store reads made with
// it run inside the transaction.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Create inserts value, which must be a model or a slice of models.
func (tx *Tx) Create(value any) error {
	return translateError("create", tx.db.Create(value).Error)
}

// Exec runs a raw statement and returns the number of affected rows.
func (tx *Tx) Exec(sql string, args ...any) (int64, error) {
	res := tx.db.Exec(sql, args...)
	return res.RowsAffected, translateError("exec", res.Error)
}

// Query reads rows through the transaction, seeing its uncommitted writes.
func (tx *Tx) Query(params QueryParams) ([]Row, error) {
	return tx.store.query(tx.db, params)
}

// Count counts rows through the transaction.
func (tx *Tx) Count(params QueryParams) (int64, error) {
	return tx.store.count(tx.db, params)
}

// activeTx returns the running transaction of this store that a call made
// with ctx belongs to: the one ctx carries, or the one whose callback runs on
// the calling goroutine.
func (s *Store) activeTx(ctx context.Context) *Tx {
	if tx, ok := ctx.Value(txKey{}).(*Tx); ok && tx.store == s && tx.active.Load() {
		return tx
	}
	if tx := s.current.Load(); tx != nil && tx.active.Load() && tx.owner == goid() {
		return tx
	}
	return nil
}

// lockWriter takes the single writer slot, giving up when ctx is done.
func (s *Store) lockWriter(ctx context.Context) error {
	return s.writer.Acquire(ctx, 1)
}

func (s *Store) unlockWriter() {
	s.writer.Release(1)
}

// RunTransaction runs fn in a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; a panic is
// re-raised after the rollback. Transactions are serialized and waiting for
// the writer slot stops when ctx is done.
//
// A transaction started from inside a running one of this store fails with
// TransactionFailure and leaves the outer one untouched. Calls belong to the
// running transaction when their context carries it or when they are made
// on the goroutine running its callback.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	if s.activeTx(ctx) != nil {
		if s.metrics != nil {
			s.metrics.RecordTransaction(TxRejected)
		}
		return dberrors.NewTransactionError(dberrors.ErrNestedTransaction)
	}

	if err := s.lockWriter(ctx); err != nil {
		return dberrors.NewTransactionError(err)
	}
	defer s.unlockWriter()

	s.gate.RLock()
	defer s.gate.RUnlock()

	db, err := s.readDB(ctx, "run transaction")
	if err != nil {
		return err
	}

	start := time.Now()
	ctx, span := telemetry.StartStoreSpan(ctx, "transaction", string(s.cfg.Type))
	defer span.End()

	outcome := TxRolledBack
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordTransaction(outcome)
		}
	}()

	err = db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx := &Tx{store: s, owner: goid()}
		tx.ctx = context.WithValue(ctx, txKey{}, tx)
		tx.db = gtx.WithContext(tx.ctx)
		tx.active.Store(true)
		s.current.Store(tx)
		defer func() {
			s.current.Store(nil)
			tx.active.Store(false)
		}()
		return fn(tx)
	})
	s.observe("transaction", start, err)

	if err != nil {
		telemetry.RecordError(ctx, err)
		s.log.Debug("Transaction rolled back", logger.KeyError, err, logger.KeyDurationMs, logger.Duration(start))
		return dberrors.NewTransactionError(err)
	}
	outcome = TxCommitted
	return nil
}

// InTransaction runs fn in a transaction of store and returns its value.
func InTransaction[T any](ctx context.Context, store *Store, fn func(tx *Tx) (T, error)) (T, error) {
	var out T
	err := store.RunTransaction(ctx, func(tx *Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

var goroutinePrefix = []byte("goroutine ")

// goid returns the id of the calling goroutine, parsed from the header line
// of its stack trace.
func goid() uint64 {
	var buf [64]byte
	b := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
