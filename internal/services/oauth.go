package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// NewOAuthConfig returns the Google OAuth2 configuration for managing the user's playlists.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: youtube client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{youtube.YoutubeScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// AuthURL returns the consent URL for state, requesting a refresh token.
func AuthURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// LoadToken reads a token saved by [SaveToken].
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no token at %s, run `ytsort auth youtube`", shared.ErrNotAuthenticated, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// LoadCredential loads the saved token, refreshing and re-saving it when it has expired.
func LoadCredential(ctx context.Context, config *oauth2.Config, path string) (Credential, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return Credential{}, err
	}

	if tok.Valid() {
		return NewCredential(tok), nil
	}

	fresh, err := config.TokenSource(ctx, tok).Token()
	if err != nil {
		return Credential{}, fmt.Errorf("%w: token refresh: %v", shared.ErrAuthFailed, err)
	}

	if fresh.AccessToken != tok.AccessToken {
		if err := SaveToken(path, fresh); err != nil {
			return Credential{}, err
		}
	}

	return NewCredential(fresh), nil
}
