package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/cloudstorage/pkg/logger"
)

const (
	defaultAddress           = ":8080"
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// Hook runs during server startup or shutdown.
type Hook func(ctx context.Context) error

// ServerConfig configures Serve.
type ServerConfig struct {
	Handler         http.Handler
	Logger          *slog.Logger
	Address         string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration

	// StartupHooks run in order before the listener accepts requests.
	// The first failure aborts startup.
	StartupHooks []Hook

	// ShutdownHooks run in order after the server stops accepting requests.
	// All hooks run; failures are joined.
	ShutdownHooks []Hook
}

// Serve listens on cfg.Address and blocks until ctx is done or the server
// fails, then shuts down gracefully. Write timeouts are left unset so large
// uploads and slow clients are bounded by ReadTimeout alone.
func Serve(ctx context.Context, cfg ServerConfig) error {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNope()
	}

	for _, hook := range cfg.StartupHooks {
		if err := hook(ctx); err != nil {
			return errors.Join(err, runHooks(log, cfg.ShutdownTimeout, cfg.ShutdownHooks))
		}
	}

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           cfg.Handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(err, runHooks(log, cfg.ShutdownTimeout, cfg.ShutdownHooks))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	errs := []error{serveErr}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, runHooks(log, cfg.ShutdownTimeout, cfg.ShutdownHooks))

	if err := errors.Join(errs...); err != nil {
		log.Error("shutdown completed with errors", slog.String("error", err.Error()))
		return err
	}
	log.Info("shutdown completed")
	return nil
}

func runHooks(log *slog.Logger, timeout time.Duration, hooks []Hook) error {
	if len(hooks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			log.Error("shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
