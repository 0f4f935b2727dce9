package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

func TestManagerBeforeInitialize(t *testing.T) {
	m := NewManager(nil, WithManagerLogger(logger.Nop()))
	ctx := context.Background()

	assert.False(t, m.IsReady())
	_, err := m.Stats(ctx)
	assert.True(t, dberrors.IsNotReady(err))
	assert.True(t, dberrors.IsNotReady(m.Optimize(ctx)))
	assert.True(t, dberrors.IsNotReady(m.Close()))
	assert.NotNil(t, m.Store())
}

func TestManagerInitialize(t *testing.T) {
	rec := logger.NewRecorder()
	m := NewManager(NewStore(WithLogger(logger.Nop())), WithManagerLogger(rec))
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	require.True(t, m.Initialize(ctx, sqliteConfig(t)))
	assert.True(t, m.IsReady())

	entries := rec.Filter(logger.LevelInfo, "initialized")
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Fields[logger.KeyTables])

	// A second call is a no-op, even with a config that would fail.
	assert.True(t, m.Initialize(ctx, &Config{Type: "oracle"}))
	assert.Len(t, rec.Filter(logger.LevelInfo, "initialized"), 1)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DatabaseTypeSQLite, stats.Type)
	assert.NoError(t, m.Optimize(ctx))
}

func TestManagerInitializeFailure(t *testing.T) {
	rec := logger.NewRecorder()
	m := NewManager(nil, WithManagerLogger(rec))

	var res Result
	require.NotPanics(t, func() {
		res = m.InitializeResult(context.Background(), &Config{Type: "oracle"})
	})
	assert.False(t, res.OK)
	assert.Equal(t, dberrors.InitializationError, res.Kind)
	assert.Contains(t, res.Error(), "unsupported database type")
	assert.False(t, m.IsReady())
	assert.True(t, rec.Has(logger.LevelError, "initialization failed"))

	assert.False(t, m.Initialize(context.Background(), &Config{Type: "oracle"}))
}

func TestManagerCloseAndReinitialize(t *testing.T) {
	m := NewManager(nil, WithManagerLogger(logger.Nop()))
	cfg := sqliteConfig(t)
	ctx := context.Background()

	require.True(t, m.Initialize(ctx, cfg))
	require.NoError(t, m.Close())

	assert.False(t, m.IsReady())
	assert.False(t, m.Store().IsReady())
	_, err := m.Stats(ctx)
	assert.True(t, dberrors.IsNotReady(err))

	require.True(t, m.Initialize(ctx, cfg))
	assert.True(t, m.IsReady())
	require.NoError(t, m.Close())
}

func TestManagerNotReadyWhenStoreClosedUnderneath(t *testing.T) {
	m := NewManager(nil, WithManagerLogger(logger.Nop()))
	require.True(t, m.Initialize(context.Background(), sqliteConfig(t)))

	require.NoError(t, m.Store().Close())
	assert.False(t, m.IsReady())
	assert.True(t, dberrors.IsNotReady(m.Optimize(context.Background())))
}

func TestManagerInitializeReopensClosedStore(t *testing.T) {
	m := NewManager(nil, WithManagerLogger(logger.Nop()))
	cfg := sqliteConfig(t)
	require.True(t, m.Initialize(context.Background(), cfg))
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Store().Close())
	require.False(t, m.IsReady())

	assert.True(t, m.Initialize(context.Background(), cfg))
	assert.True(t, m.IsReady(), "Initialize reports success only for a usable store")
	assert.True(t, m.Store().IsReady())
	assert.NoError(t, m.Optimize(context.Background()))
}

func TestManagerCloseInsideTransactionKeepsFacadeReady(t *testing.T) {
	m := NewManager(nil, WithManagerLogger(logger.Nop()))
	require.True(t, m.Initialize(context.Background(), sqliteConfig(t)))
	t.Cleanup(func() { _ = m.Close() })

	var closeErr error
	require.NoError(t, m.Store().RunTransaction(context.Background(), func(tx *Tx) error {
		closeErr = m.Close()
		return nil
	}))
	assert.ErrorIs(t, closeErr, dberrors.ErrInTransaction)
	assert.True(t, m.IsReady())
	require.NoError(t, m.Close())
	assert.False(t, m.IsReady())
}

func TestResult(t *testing.T) {
	ok := Succeeded()
	assert.True(t, ok.OK)
	assert.Empty(t, ok.Error())

	failed := Failed(dberrors.NewNotReadyError("stats"))
	assert.False(t, failed.OK)
	assert.Equal(t, dberrors.NotReady, failed.Kind)

	assert.Equal(t, dberrors.Internal, Failed(assert.AnError).Kind)
}
