// Package services defines [PlaylistService], the three remote mutations a sync performs,
// and implements it for YouTube.
//
// # YouTube Implementation
//
// [YouTubeService] talks to the YouTube Data API v3 through google.golang.org/api.
// Each call is authorised with the caller's [Credential] via an [oauth2.Config] client,
// which refreshes expired access tokens transparently. A [rate.Limiter] paces calls.
//
// # Authentication
//
// [NewOAuthConfig] builds the Google OAuth2 configuration for the youtube scope.
// Tokens are persisted as JSON with [SaveToken] and read back with [LoadToken] or
// [LoadCredential], which also refreshes and re-saves an expired token.
//
// # Error Handling
//
// API failures are classified at this boundary so callers only use errors.Is:
//   - [shared.ErrQuotaExceeded] : 403 with reason quotaExceeded, dailyLimitExceeded or rateLimitExceeded
//   - [shared.ErrConflict] : 409 or videoAlreadyInPlaylist
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : anything else
package services
