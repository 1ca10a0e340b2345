package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/desertthunder/ytsort/internal/shared"
)

// Provider stores snapshot documents under slash-separated keys.
type Provider interface {
	Type() string
	Upload(ctx context.Context, key string, r io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg shared.SnapshotConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalProvider(cfg.Dir)
	case "s3":
		return NewS3Provider(ctx, cfg.S3)
	case "webdav":
		return NewWebDAVProvider(cfg.WebDAV)
	default:
		return nil, fmt.Errorf("%w: unknown snapshot provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}

// LocalProvider writes snapshots to a directory on disk.
type LocalProvider struct {
	dir string
}

// NewLocalProvider creates dir if needed.
func NewLocalProvider(dir string) (*LocalProvider, error) {
	if dir == "" {
		dir = "snapshots"
	}

	expanded := shared.ExpandHome(dir)
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &LocalProvider{dir: expanded}, nil
}

func (p *LocalProvider) Type() string {
	return "local"
}

func (p *LocalProvider) Upload(ctx context.Context, key string, r io.Reader) error {
	target := p.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (p *LocalProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(p.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	return f, nil
}

func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(p.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	return true, nil
}

func (p *LocalProvider) path(key string) string {
	return filepath.Join(p.dir, filepath.FromSlash(path.Clean("/"+key)))
}
