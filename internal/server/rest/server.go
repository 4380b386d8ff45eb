package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/payportal/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server serves the router until its context is cancelled. TLS is used when
// both certificate files are set.
type Server struct {
	address  string
	handler  http.Handler
	certFile string
	keyFile  string
	logger   logging.Logger
}

func NewServer(address string, handler http.Handler, certFile, keyFile string, l logging.Logger) *Server {
	return &Server{
		address:  address,
		handler:  handler,
		certFile: certFile,
		keyFile:  keyFile,
		logger:   l.With("module", "rest"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.certFile != "" && s.keyFile != "" {
			s.logger.Info(ctx, "HTTPS server listening", "address", s.address)
			err = srv.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			s.logger.Warn(ctx, "HTTP server listening without TLS", "address", s.address)
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
