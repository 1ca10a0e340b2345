package backup

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/repositories"
	"github.com/desertthunder/ytsort/internal/shared"
	"golang.org/x/net/webdav"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// mockS3Client keeps objects in memory.
type mockS3Client struct {
	objects map[string][]byte
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := m.objects[*params.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func exerciseProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	exists, err := p.Exists(ctx, "nested/a.json")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected object to be missing")
	}

	if err := p.Upload(ctx, "nested/a.json", strings.NewReader(`{"ok":true}`)); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	exists, err = p.Exists(ctx, "nested/a.json")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected object to exist after upload")
	}

	body, err := p.Download(ctx, "nested/a.json")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected content %q", data)
	}
}

func TestProviders(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		p, err := NewLocalProvider(t.TempDir())
		if err != nil {
			t.Fatalf("failed to create provider: %v", err)
		}
		if p.Type() != "local" {
			t.Errorf("expected type local, got %s", p.Type())
		}
		exerciseProvider(t, p)
	})

	t.Run("S3", func(t *testing.T) {
		client := newMockS3Client()
		p := newS3Provider(client, "bucket", "ytsort/snapshots")
		exerciseProvider(t, p)

		if _, ok := client.objects["ytsort/snapshots/nested/a.json"]; !ok {
			t.Errorf("expected prefixed key, have %v", client.objects)
		}
	})

	t.Run("WebDAV", func(t *testing.T) {
		server := httptest.NewServer(&webdav.Handler{
			FileSystem: webdav.NewMemFS(),
			LockSystem: webdav.NewMemLS(),
		})
		defer server.Close()

		p, err := NewWebDAVProvider(shared.WebDAVConfig{URL: server.URL, Dir: "/ytsort"})
		if err != nil {
			t.Fatalf("failed to create provider: %v", err)
		}
		exerciseProvider(t, p)
	})

	t.Run("Factory", func(t *testing.T) {
		ctx := context.Background()

		p, err := NewProvider(ctx, shared.SnapshotConfig{Provider: "local", Dir: t.TempDir()})
		if err != nil || p.Type() != "local" {
			t.Fatalf("expected local provider, got %v (%v)", p, err)
		}

		if _, err := NewProvider(ctx, shared.SnapshotConfig{Provider: "ftp"}); err == nil {
			t.Error("expected error for unknown provider")
		}
		if _, err := NewProvider(ctx, shared.SnapshotConfig{Provider: "s3"}); err == nil {
			t.Error("expected error for s3 without bucket")
		}
		if _, err := NewProvider(ctx, shared.SnapshotConfig{Provider: "webdav"}); err == nil {
			t.Error("expected error for webdav without url")
		}
	})
}

func TestSnapshotter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	categories := repositories.NewCategoryRepository(db)
	videos := repositories.NewVideoRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	anchor := "PL-existing"
	category := &models.Category{Name: "Cooking", ExternalPlaylistID: &anchor}
	if err := categories.Create(category); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	video := &models.Video{ExternalVideoID: "abc123", Title: "Pasta"}
	if err := videos.Create(video); err != nil {
		t.Fatalf("failed to create video: %v", err)
	}
	if err := categories.AssignVideo(category.ID, video.ID, 0); err != nil {
		t.Fatalf("failed to assign video: %v", err)
	}
	if err := playlists.Create(&models.Playlist{ExternalPlaylistID: "PL-old", Name: "Old"}); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}

	provider, err := NewLocalProvider(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	snapshotter := NewSnapshotter(db, provider, nil)
	ctx := context.Background()

	snapshot, err := snapshotter.CreateSnapshot(ctx, "pre-sync")
	if err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}
	if snapshot.CategoryCount != 1 || snapshot.VideoCount != 1 || snapshot.Provider != "local" {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}

	exists, err := provider.Exists(ctx, snapshot.Location)
	if err != nil || !exists {
		t.Fatalf("expected snapshot file at %s (%v)", snapshot.Location, err)
	}

	doc, err := snapshotter.Load(ctx, snapshot.ID)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if doc.Trigger != "pre-sync" || len(doc.Assignments) != 1 || len(doc.Playlists) != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Categories[0].ExternalPlaylistID == nil || *doc.Categories[0].ExternalPlaylistID != anchor {
		t.Error("expected category anchor in snapshot")
	}

	list, err := snapshotter.List()
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(list) != 1 || list[0].ID != snapshot.ID {
		t.Errorf("expected indexed snapshot, got %d", len(list))
	}
}
