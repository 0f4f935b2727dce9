package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fieldstore/internal/logger"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
	"github.com/marmos91/fieldstore/pkg/lifecycle"
)

func TestAPIConfig_Defaults(t *testing.T) {
	var cfg APIConfig
	assert.True(t, cfg.IsEnabled())

	cfg.ApplyDefaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 25*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.NoError(t, cfg.Validate())

	off := false
	cfg.Enabled = &off
	assert.False(t, cfg.IsEnabled())

	cfg.RequestTimeout = time.Minute
	assert.Error(t, cfg.Validate())
}

func TestServer_Lifecycle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(APIConfig{}, Dependencies{}, WithListener(ln), WithServerLogger(logger.Nop()))
	var _ lifecycle.Component = srv

	assert.False(t, srv.IsInitialized())
	assert.Empty(t, srv.Addr())
	assert.Equal(t, 8080, srv.Port())

	ctx := context.Background()
	require.NoError(t, srv.Initialize(ctx))
	require.NoError(t, srv.Initialize(ctx), "second initialize is a no-op")
	assert.True(t, srv.IsInitialized())
	assert.Equal(t, ln.Addr().String(), srv.Addr())
	assert.Equal(t, ln.Addr().(*net.TCPAddr).Port, srv.Port())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://%s/health/ready", srv.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	addr := srv.Addr()
	require.NoError(t, srv.Destroy(ctx))
	require.NoError(t, srv.Destroy(ctx), "second destroy is a no-op")
	assert.False(t, srv.IsInitialized())

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err, "listener closed after destroy")
}

func TestServer_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	port := busy.Addr().(*net.TCPAddr).Port
	srv := NewServer(APIConfig{Host: "127.0.0.1", Port: port}, Dependencies{}, WithServerLogger(logger.Nop()))

	err = srv.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, dberrors.IsKind(err, dberrors.InitializationError))
	assert.False(t, srv.IsInitialized())
}

func TestServer_AsRegistryComponent(t *testing.T) {
	reg := lifecycle.NewRegistry(lifecycle.WithLogger(logger.Nop()))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(APIConfig{}, Dependencies{Registry: reg}, WithListener(ln), WithServerLogger(logger.Nop()))
	require.True(t, reg.Register("api", srv))

	require.NoError(t, reg.InitializeAll(context.Background()))

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/components", srv.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	report := reg.DestroyAll(context.Background())
	assert.True(t, report.OK())
	assert.False(t, srv.IsInitialized())
}
