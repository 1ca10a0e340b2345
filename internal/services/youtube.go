// YouTube Data API v3 implementation of [PlaylistService]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Privacy status applied to playlists created by a sync.
const defaultPrivacyStatus = "private"

// quotaReasons are the googleapi error reasons that mean the daily budget is gone.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// YouTubeService implements [PlaylistService] with the YouTube Data API.
//
// Calls are paced by a token bucket limiter; every call builds an authorised
// client from the caller's [Credential] so a refreshed token is always used.
type YouTubeService struct {
	config     *oauth2.Config
	limiter    *rate.Limiter
	endpoint   string
	httpClient *http.Client
	privacy    string
	logger     *log.Logger
}

// YouTubeOption configures a [YouTubeService].
type YouTubeOption func(*YouTubeService)

// WithEndpoint points the service at a different API base URL.
func WithEndpoint(endpoint string) YouTubeOption {
	return func(y *YouTubeService) { y.endpoint = endpoint }
}

// WithHTTPClient sets the transport used underneath the OAuth client.
func WithHTTPClient(client *http.Client) YouTubeOption {
	return func(y *YouTubeService) { y.httpClient = client }
}

// WithPrivacyStatus sets the privacy of created playlists (private, unlisted, public).
func WithPrivacyStatus(status string) YouTubeOption {
	return func(y *YouTubeService) { y.privacy = status }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *log.Logger) YouTubeOption {
	return func(y *YouTubeService) { y.logger = logger }
}

// NewYouTubeService creates a service limited to requestsPerSecond calls.
func NewYouTubeService(config *oauth2.Config, requestsPerSecond float64, opts ...YouTubeOption) *YouTubeService {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	y := &YouTubeService{
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		privacy: defaultPrivacyStatus,
		logger:  log.Default(),
	}

	for _, opt := range opts {
		opt(y)
	}

	return y
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// CreatePlaylist inserts a playlist and returns its ID.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, cred Credential, name string) (string, error) {
	svc, err := y.client(ctx, cred)
	if err != nil {
		return "", err
	}

	playlist := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: name},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: y.privacy},
	}

	created, err := svc.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return "", classify(ctx, "create playlist", err)
	}

	y.logger.Debug("created playlist", "name", name, "playlist", created.Id)
	return created.Id, nil
}

// AddVideoToPlaylist inserts a playlist item for videoID.
func (y *YouTubeService) AddVideoToPlaylist(ctx context.Context, cred Credential, playlistID, videoID string) error {
	svc, err := y.client(ctx, cred)
	if err != nil {
		return err
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}

	if _, err := svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return classify(ctx, "add video", err)
	}

	y.logger.Debug("added video", "playlist", playlistID, "video", videoID)
	return nil
}

// DeletePlaylist deletes the playlist.
func (y *YouTubeService) DeletePlaylist(ctx context.Context, cred Credential, playlistID string) error {
	svc, err := y.client(ctx, cred)
	if err != nil {
		return err
	}

	if err := svc.Playlists.Delete(playlistID).Context(ctx).Do(); err != nil {
		return classify(ctx, "delete playlist", err)
	}

	y.logger.Debug("deleted playlist", "playlist", playlistID)
	return nil
}

// client waits for the limiter and builds an API client authorised by cred.
func (y *YouTubeService) client(ctx context.Context, cred Credential) (*youtube.Service, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrTimeout, err)
	}

	if y.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, y.httpClient)
	}

	opts := []option.ClientOption{option.WithHTTPClient(y.config.Client(ctx, cred.Token))}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return svc, nil
}

// classify maps API failures onto the shared sentinel errors.
func classify(ctx context.Context, op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			if quotaReasons[item.Reason] {
				return fmt.Errorf("%s: %w: %s", op, shared.ErrQuotaExceeded, item.Message)
			}
			if item.Reason == "videoAlreadyInPlaylist" {
				return fmt.Errorf("%s: %w: %s", op, shared.ErrConflict, item.Message)
			}
		}

		switch {
		case gerr.Code == http.StatusConflict:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrConflict, gerr.Message)
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrNotFound, gerr.Message)
		case gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrNotAuthenticated, gerr.Message)
		case gerr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrServiceUnavailable, gerr.Message)
		}

		return fmt.Errorf("%s: %w: %d %s", op, shared.ErrAPIRequest, gerr.Code, gerr.Message)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	return fmt.Errorf("%s: %w: %v", op, shared.ErrAPIRequest, err)
}
