package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/oauth2"
)

func writeAPIError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s","errors":[{"domain":"youtube","reason":"%s","message":"%s"}]}}`,
		code, reason, reason, reason)
}

func newTestService(t *testing.T, handler http.HandlerFunc) *YouTubeService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewYouTubeService(&oauth2.Config{}, 0,
		WithEndpoint(server.URL+"/"),
		WithHTTPClient(server.Client()),
	)
}

func testCredential() Credential {
	return NewCredential(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		if svc := NewYouTubeService(&oauth2.Config{}, 5); svc.Name() != "YouTube" {
			t.Errorf("expected name to be 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/youtube/v3/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("expected bearer token, got %q", got)
			}

			var body struct {
				Snippet struct {
					Title string `json:"title"`
				} `json:"snippet"`
				Status struct {
					PrivacyStatus string `json:"privacyStatus"`
				} `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Snippet.Title != "Cooking" || body.Status.PrivacyStatus != "private" {
				t.Errorf("unexpected playlist body %+v", body)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"PL123","snippet":{"title":"Cooking"}}`))
		})

		id, err := svc.CreatePlaylist(ctx, testCredential(), "Cooking")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "PL123" {
			t.Errorf("expected PL123, got %s", id)
		}
	})

	t.Run("AddVideoToPlaylist", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/youtube/v3/playlistItems" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			var body struct {
				Snippet struct {
					PlaylistID string `json:"playlistId"`
					ResourceID struct {
						VideoID string `json:"videoId"`
					} `json:"resourceId"`
				} `json:"snippet"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Snippet.PlaylistID != "PL1" || body.Snippet.ResourceID.VideoID != "vid1" {
				t.Errorf("unexpected item body %+v", body)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"item1"}`))
		})

		if err := svc.AddVideoToPlaylist(ctx, testCredential(), "PL1", "vid1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("DeletePlaylist", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Query().Get("id") != "PL9" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := svc.DeletePlaylist(ctx, testCredential(), "PL9"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("MissingCredential", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected without a credential")
		})

		_, err := svc.CreatePlaylist(ctx, Credential{}, "x")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		reason string
		want   error
	}{
		{"QuotaExceeded", http.StatusForbidden, "quotaExceeded", shared.ErrQuotaExceeded},
		{"DailyLimit", http.StatusForbidden, "dailyLimitExceeded", shared.ErrQuotaExceeded},
		{"RateLimit", http.StatusForbidden, "rateLimitExceeded", shared.ErrQuotaExceeded},
		{"Conflict", http.StatusConflict, "conflict", shared.ErrConflict},
		{"AlreadyInPlaylist", http.StatusBadRequest, "videoAlreadyInPlaylist", shared.ErrConflict},
		{"NotFound", http.StatusNotFound, "playlistNotFound", shared.ErrNotFound},
		{"Unauthorized", http.StatusUnauthorized, "authError", shared.ErrNotAuthenticated},
		{"Forbidden", http.StatusForbidden, "playlistForbidden", shared.ErrAPIRequest},
		{"ServerError", http.StatusServiceUnavailable, "backendError", shared.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.code, tt.reason)
			})

			err := svc.AddVideoToPlaylist(context.Background(), testCredential(), "PL1", "vid1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("QuotaIsNotConflict", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			writeAPIError(w, http.StatusForbidden, "quotaExceeded")
		})

		err := svc.DeletePlaylist(context.Background(), testCredential(), "PL1")
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrConflict) {
			t.Errorf("quota error must not normalise to success: %v", err)
		}
	})
}

func TestOAuth(t *testing.T) {
	t.Run("NewOAuthConfig", func(t *testing.T) {
		config, err := NewOAuthConfig("id", "secret", "http://localhost:3000/auth/youtube/callback")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(config.Scopes) != 1 || config.Scopes[0] != "https://www.googleapis.com/auth/youtube" {
			t.Errorf("unexpected scopes %v", config.Scopes)
		}

		if _, err := NewOAuthConfig("", "secret", ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("AuthURL", func(t *testing.T) {
		config, _ := NewOAuthConfig("id", "secret", "http://localhost/cb")
		url := AuthURL(config, "state123")
		if url == "" {
			t.Fatal("expected auth url")
		}
		for _, want := range []string{"state=state123", "access_type=offline", "client_id=id"} {
			if !strings.Contains(url, want) {
				t.Errorf("expected %q in %s", want, url)
			}
		}
	})

	t.Run("SaveAndLoadToken", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token.json")
		tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour).Round(time.Second)}

		if err := SaveToken(path, tok); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		loaded, err := LoadToken(path)
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if loaded.AccessToken != "a" || loaded.RefreshToken != "r" || !loaded.Expiry.Equal(tok.Expiry) {
			t.Errorf("unexpected token %+v", loaded)
		}

		cred, err := LoadCredential(context.Background(), &oauth2.Config{}, path)
		if err != nil {
			t.Fatalf("failed to load credential: %v", err)
		}
		if cred.Token.AccessToken != "a" {
			t.Errorf("expected unexpired token to be used as is, got %s", cred.Token.AccessToken)
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := LoadToken(filepath.Join(t.TempDir(), "missing.json"))
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Credential.Validate", func(t *testing.T) {
		if err := (Credential{}).Validate(); err == nil {
			t.Error("expected error for empty credential")
		}
		if err := NewCredential(&oauth2.Token{RefreshToken: "r"}).Validate(); err != nil {
			t.Errorf("refresh token alone should be usable: %v", err)
		}
	})
}
