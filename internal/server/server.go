// Package server implements the assistant HTTP surface: the authenticated
// proxy to the backend agent, the session and history API, and the
// per-session SSE event feed.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/attyx/assistant/internal/config"
	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/store"
	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the assistant server.
type StartOpts struct {
	Store  *store.Store
	Broker *feed.Broker
	Config *config.Config
	Out    io.Writer
}

// Start launches the assistant HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("server: store is required")
	}
	if opts.Broker == nil {
		return fmt.Errorf("server: broker is required")
	}
	if opts.Config == nil {
		return fmt.Errorf("server: config is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.Store, opts.Broker, opts.Config)

	if opts.Config.Reporting.Enabled {
		refresher := newReportingRefresher(opts.Store, opts.Broker, opts.Config.Reporting.Cron)
		go refresher.run(ctx)
	}

	addr := fmt.Sprintf(":%d", opts.Config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Assistant server listening at http://localhost:%d\n", opts.Config.Server.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
