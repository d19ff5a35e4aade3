package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dagym/contract-backend/pkg/logger"
)

const defaultGrace = 15 * time.Second

// Serve runs srv until ctx is canceled, then shuts it down within grace. A clean shutdown returns
// nil.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration, logg *logger.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, srv, ln, grace, logg)
}

func serveListener(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logg *logger.Logger) error {
	if grace <= 0 {
		grace = defaultGrace
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = 10 * time.Second
	}
	ctx = logg.WithField(ctx, "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logg.Info(ctx, "http server stopped")
	return nil
}
