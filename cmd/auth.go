package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/ytsort/internal/server"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthYouTube performs the OAuth2 authorization code flow for the YouTube Data API.
//
// Starts a local HTTP server, opens browser for user authorization, and saves the token to
// credentials.youtube.token_path.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	config, err := r.oauthConfig()
	if err != nil {
		return fmt.Errorf("%w: set credentials.youtube in %s", err, cmd.String("config"))
	}

	path := r.tokenPath()
	sink := func(tok *oauth2.Token) error { return services.SaveToken(path, tok) }

	if _, err := r.doOAuth(ctx, config, sink); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", path)
	r.writePlain("You can now use: ytsort sync start\n")
	return nil
}

// doOAuth serves the callback on server.host:server.port until the browser returns or the flow times out.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, sink server.TokenSink) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := services.AuthURL(config, state)
	oauthHandler := server.NewOAuthHandler(config, state, sink)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for YouTube authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", shared.FormatDuration(authTimeout))

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, shared.FormatDuration(authTimeout))
	case <-ctx.Done():
		httpServer.Close()
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// AuthStatus loads the saved token, refreshing it if expired, and reports its state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	r.logger.Info("checking auth status", "token", r.tokenPath())

	cred, err := r.credential(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			r.writePlain("Authentication: ✗ Not authenticated\n")
			r.writePlain("Run 'ytsort auth youtube' to authorize.\n")
			return nil
		}
		return err
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("Token path: %s\n", r.tokenPath())
	if !cred.Token.Expiry.IsZero() {
		r.writePlain("Expires in: %s\n", shared.FormatDuration(time.Until(cred.Token.Expiry)))
	}
	if cred.Token.RefreshToken == "" {
		r.writePlain("⚠ No refresh token saved; re-run 'ytsort auth youtube' when it expires\n")
	}
	return nil
}
