package httpserver_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	for range 50 {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			require.NoError(t, conn.Close())
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up", addr)
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := httpserver.New(httpserver.Config{Addr: addr, ShutdownTimeout: time.Second}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "ok")
		}))
	}()

	waitForServer(t, addr)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_StartFailure(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := httpserver.New(httpserver.Config{Addr: l.Addr().String()}, slog.Default())
	err = srv.Run(context.Background(), nil)
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(slog.Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()

		ok := func(context.Context) error { return nil }
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(slog.Default(), ok, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()

		ok := func(context.Context) error { return nil }
		bad := func(context.Context) error { return errors.New("db down") }
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(slog.Default(), ok, bad).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}
