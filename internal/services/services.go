// package services defines the remote playlist operations the sync engine consumes
// and implements them over the YouTube Data API.
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
)

// PlaylistService is the remote side of a sync: the three mutations the executors perform.
//
// Implementations classify failures so callers can match them with errors.Is:
//   - [shared.ErrQuotaExceeded] : daily budget spent, the job should pause
//   - [shared.ErrConflict] : the video is already in the playlist
//   - [shared.ErrNotFound] : the playlist no longer exists
type PlaylistService interface {
	// CreatePlaylist creates a playlist named name and returns its remote ID.
	CreatePlaylist(ctx context.Context, cred Credential, name string) (string, error)

	// AddVideoToPlaylist appends the video to the playlist.
	AddVideoToPlaylist(ctx context.Context, cred Credential, playlistID, videoID string) error

	// DeletePlaylist removes the playlist.
	DeletePlaylist(ctx context.Context, cred Credential, playlistID string) error

	// Name returns the name of the service (e.g., "YouTube")
	Name() string
}

// Credential authorises remote calls on behalf of the library owner.
type Credential struct {
	Token *oauth2.Token
}

// NewCredential wraps tok.
func NewCredential(tok *oauth2.Token) Credential {
	return Credential{Token: tok}
}

// Validate reports [shared.ErrMissingCredentials] when no usable token is present.
func (c Credential) Validate() error {
	if c.Token == nil || (c.Token.AccessToken == "" && c.Token.RefreshToken == "") {
		return fmt.Errorf("%w: no oauth token", shared.ErrMissingCredentials)
	}
	return nil
}
