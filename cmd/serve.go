package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytsort/internal/server"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the sync API, plus the OAuth callback when YouTube credentials are configured,
// until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := r.serverHandler(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("serving sync API", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// serverHandler builds the router: sync API always, OAuth routes when a client is configured.
func (r *Runner) serverHandler(ctx context.Context) (http.Handler, error) {
	engine, err := r.engine(ctx)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(r.logger, "component", "http")
	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger))
	router.Handler(server.NewSyncHandler(engine, r.credential, r.config.Sync.BatchSize, logger))

	config, err := r.oauthConfig()
	if err != nil {
		r.logger.Warn("oauth routes disabled", "error", err)
		return router, nil
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	path := r.tokenPath()
	oauthHandler := server.NewOAuthHandler(config, state, func(tok *oauth2.Token) error {
		return services.SaveToken(path, tok)
	})
	router.Handler(oauthHandler)
	router.Handle(http.MethodGet, "/auth/youtube", http.RedirectHandler(services.AuthURL(config, state), http.StatusFound))

	go func() {
		select {
		case result := <-oauthHandler.Result():
			if err := result.Error(); err != nil {
				logger.Error("authorization failed", "error", err)
				return
			}
			logger.Info("authorization complete", "token", path)
		case <-ctx.Done():
		}
	}()

	return router, nil
}
