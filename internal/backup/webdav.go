package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/studio-b12/gowebdav"
)

// WebDAVProvider stores snapshots on a WebDAV share.
type WebDAVProvider struct {
	dir    string
	client *gowebdav.Client
}

// NewWebDAVProvider creates a provider rooted at cfg.Dir on the share.
func NewWebDAVProvider(cfg shared.WebDAVConfig) (*WebDAVProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: snapshot.webdav.url is required", shared.ErrInvalidConfig)
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)

	return &WebDAVProvider{dir: cfg.Dir, client: client}, nil
}

func (p *WebDAVProvider) Type() string {
	return "webdav"
}

func (p *WebDAVProvider) Upload(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}

	target := p.path(key)
	if err := p.client.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create WebDAV directory: %w", err)
	}

	if err := p.client.Write(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to upload to WebDAV: %w", err)
	}
	return nil
}

func (p *WebDAVProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := p.client.Read(p.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to download from WebDAV: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *WebDAVProvider) Exists(ctx context.Context, key string) (bool, error) {
	info, err := p.client.Stat(p.path(key))
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check WebDAV file existence: %w", err)
	}
	return info != nil, nil
}

func (p *WebDAVProvider) path(key string) string {
	return path.Join("/", p.dir, key)
}
