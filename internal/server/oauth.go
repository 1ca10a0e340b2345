package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// TokenSink persists a token obtained through the callback.
type TokenSink func(*oauth2.Token) error

// OAuthHandler serves the Google authorization code callback.
//
// Only the first callback is processed; its outcome is delivered once on [OAuthHandler.Result].
type OAuthHandler struct {
	config     *oauth2.Config
	state      string
	sink       TokenSink
	resultChan chan OAuthResult
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

// NewOAuthHandler creates a callback handler expecting state. sink may be nil.
func NewOAuthHandler(config *oauth2.Config, state string, sink TokenSink) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		sink:       sink,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization failed: %s", query.Get("error"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	if h.sink != nil {
		if err := h.sink(token); err != nil {
			h.Send(OAuthResult{err: fmt.Errorf("failed to save token: %w", err)})
			http.Error(w, "Failed to save token", http.StatusInternalServerError)
			return
		}
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
    <title>ytsort authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f9f9f9; }
        .card { text-align: center; background: white; padding: 2rem; border-radius: 8px; }
        h1 { color: #FF0000; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>✓ YouTube access granted</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send delivers result unless one was already sent.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
