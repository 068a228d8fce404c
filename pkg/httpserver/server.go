// Package httpserver wraps http.Server with graceful shutdown, signal
// handling, and health probe handlers.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var (
	ErrStart    = errors.New("httpserver.errors.start")
	ErrShutdown = errors.New("httpserver.errors.shutdown")
)

// Config holds the listener and timeout settings.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Server runs an http.Server until its context is canceled or the
// process receives SIGINT or SIGTERM, then drains in-flight requests.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	srv  *http.Server
	once sync.Once
}

// New returns a server for cfg. A nil logger falls back to the slog
// default.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, logger: logger}
}

// Run starts the server and blocks until shutdown completes.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.srv = srv
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", s.cfg.Addr))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		runErr = <-errCh
	case sig := <-stop:
		s.logger.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
		_ = s.Shutdown(context.Background())
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Shutdown drains the server gracefully. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
