// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ListenAndServeConfig is used to configure the HTTP server started by
// [ListenAndServe].
//
// All fields of ListenAndServeConfig can't be modified after [ListenAndServe]
// is called.
type ListenAndServeConfig struct {
	// Addr is a network address to listen on (in the form of "host:port").
	Addr string
	// Router is the router to serve.
	Router chi.Router
	// Logger specifies a logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Ready, if not nil, is called with the bound address once the server is
	// accepting connections.
	Ready func(addr string)
}

var (
	errNoAddr   = errors.New("c.Addr is empty")
	errNoRouter = errors.New("c.Router is nil")
)

// NewRouter returns a chi router with the middleware stack shared by admin
// servers.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		RespondError(nil, w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		RespondError(nil, w, ErrMethodNotAllowed)
	})
	return r
}

// ListenAndServe starts the HTTP server based on the provided
// [ListenAndServeConfig] and blocks until ctx is canceled.
func ListenAndServe(ctx context.Context, c *ListenAndServeConfig) error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Addr == "" {
		return errNoAddr
	}
	if c.Router == nil {
		return errNoRouter
	}

	l, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer l.Close()
	c.Logger.Info("listening", "addr", l.Addr().String())

	s := &http.Server{
		ErrorLog:          slog.NewLogLogger(c.Logger.Handler(), slog.LevelWarn),
		Handler:           c.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if c.Ready != nil {
		c.Ready(l.Addr().String())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.Logger.Info("gracefully shutting down admin server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Long-lived /debug/log streams would otherwise hold Shutdown open.
		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return nil
}
