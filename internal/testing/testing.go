// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/services"
	"github.com/desertthunder/ytsort/internal/shared"
)

// Remote operations recorded by [MockService].
const (
	OpCreate = "create"
	OpAdd    = "add"
	OpDelete = "delete"
)

// Call is one remote call made against [MockService].
type Call struct {
	Op         string
	Name       string
	PlaylistID string
	VideoID    string
}

// MockService is a recording test double for [services.PlaylistService].
//
// Errors are scripted per playlist name (create), video ID (add) or playlist ID (delete).
// When QuotaCalls is positive, every call after that many returns [shared.ErrQuotaExceeded].
type MockService struct {
	CreateErrs map[string]error
	AddErrs    map[string]error
	DeleteErrs map[string]error
	QuotaCalls int

	mu     sync.Mutex
	calls  []Call
	nextID int
}

// NewMockService returns a service that accepts every call.
func NewMockService() *MockService {
	return &MockService{
		CreateErrs: make(map[string]error),
		AddErrs:    make(map[string]error),
		DeleteErrs: make(map[string]error),
	}
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) CreatePlaylist(ctx context.Context, cred services.Credential, name string) (string, error) {
	if err := m.record(Call{Op: OpCreate, Name: name}); err != nil {
		return "", err
	}
	if err := m.CreateErrs[name]; err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("PL%03d", m.nextID), nil
}

func (m *MockService) AddVideoToPlaylist(ctx context.Context, cred services.Credential, playlistID, videoID string) error {
	if err := m.record(Call{Op: OpAdd, PlaylistID: playlistID, VideoID: videoID}); err != nil {
		return err
	}
	return m.AddErrs[videoID]
}

func (m *MockService) DeletePlaylist(ctx context.Context, cred services.Credential, playlistID string) error {
	if err := m.record(Call{Op: OpDelete, PlaylistID: playlistID}); err != nil {
		return err
	}
	return m.DeleteErrs[playlistID]
}

// Calls returns a copy of the recorded calls, optionally filtered by op.
func (m *MockService) Calls(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Call
	for _, c := range m.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// SetQuotaCalls changes the quota cut-off, counted from the calls already made.
func (m *MockService) SetQuotaCalls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 {
		m.QuotaCalls = 0
		return
	}
	m.QuotaCalls = len(m.calls) + n
}

func (m *MockService) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.QuotaCalls > 0 && len(m.calls) >= m.QuotaCalls {
		return fmt.Errorf("%s: %w", c.Op, shared.ErrQuotaExceeded)
	}
	m.calls = append(m.calls, c)
	return nil
}

// MockQuota is a fixed quota gate.
type MockQuota struct {
	Left  int
	Err   error
	mu    sync.Mutex
	spent int
}

// NewMockQuota returns a gate reporting remaining units.
func NewMockQuota(remaining int) *MockQuota {
	return &MockQuota{Left: remaining}
}

func (q *MockQuota) Remaining(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return 0, q.Err
	}
	return max(q.Left-q.spent, 0), nil
}

func (q *MockQuota) Spend(ctx context.Context, units int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.spent += units
	return nil
}

// Spent returns the units recorded through Spend.
func (q *MockQuota) Spent() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.spent
}

// MockSnapshotter records CreateSnapshot calls.
type MockSnapshotter struct {
	Err      error
	mu       sync.Mutex
	triggers []string
}

func (s *MockSnapshotter) CreateSnapshot(ctx context.Context, trigger string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.triggers = append(s.triggers, trigger)
	return &models.Snapshot{
		ID:       fmt.Sprintf("snap-%d", len(s.triggers)),
		Trigger:  trigger,
		Provider: "mock",
		Location: fmt.Sprintf("mock/%d.json", len(s.triggers)),
	}, nil
}

// Triggers returns the trigger of every snapshot taken.
func (s *MockSnapshotter) Triggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.triggers...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
