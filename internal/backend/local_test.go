package backend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dsync/internal/backend"
	"dsync/internal/model"
	"dsync/internal/testutil"
)

func TestNewLocalBackend(t *testing.T) {
	t.Run("file URL", func(t *testing.T) {
		if _, err := backend.NewLocalBackend("file:///srv/configs"); err != nil {
			t.Errorf("NewLocalBackend() error = %v", err)
		}
	})

	t.Run("bare path", func(t *testing.T) {
		if _, err := backend.NewLocalBackend("/srv/configs"); err != nil {
			t.Errorf("NewLocalBackend() error = %v", err)
		}
	})

	t.Run("non-file scheme is rejected", func(t *testing.T) {
		if _, err := backend.NewLocalBackend("https://example.com/configs"); err == nil {
			t.Error("NewLocalBackend() expected error for https URL")
		}
	})
}

func TestLocalBackend_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("serves the directory in place", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{"a.txt": "a"})

		b, err := backend.NewLocalBackend("file://" + root)
		if err != nil {
			t.Fatalf("NewLocalBackend() error = %v", err)
		}

		replica, err := b.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		defer replica.Close()

		if replica.Root() != root {
			t.Errorf("Root() = %s, want %s", replica.Root(), root)
		}
		// Close must never remove the source directory.
		if err := replica.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "a.txt")); err != nil {
			t.Errorf("source file missing after Close: %v", err)
		}
	})

	t.Run("missing root fails", func(t *testing.T) {
		b, err := backend.NewLocalBackend("/nonexistent/dsync-test-root")
		if err != nil {
			t.Fatalf("NewLocalBackend() error = %v", err)
		}
		if _, err := b.Fetch(ctx); err == nil {
			t.Error("Fetch() expected error for missing root")
		}
	})

	t.Run("file root fails", func(t *testing.T) {
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{"plain.txt": "x"})

		b, err := backend.NewLocalBackend(root + "/plain.txt")
		if err != nil {
			t.Fatalf("NewLocalBackend() error = %v", err)
		}
		if _, err := b.Fetch(ctx); err == nil {
			t.Error("Fetch() expected error for non-directory root")
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("resolves each known type", func(t *testing.T) {
		cases := []struct {
			typ model.SourceType
			url string
		}{
			{model.SourceTypeLocal, "file:///srv/configs"},
			{model.SourceTypeGit, "https://github.com/org/repo"},
			{model.SourceTypeS3, "s3://bucket/prefix"},
		}
		for _, tc := range cases {
			src := &model.DataSource{Type: tc.typ, SourceURL: tc.url}
			if _, err := backend.New(src); err != nil {
				t.Errorf("New(%s) error = %v", tc.typ, err)
			}
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		src := &model.DataSource{Type: model.SourceType("ftp"), SourceURL: "ftp://host/x"}
		if _, err := backend.New(src); err == nil {
			t.Error("New() expected error for unknown type")
		}
	})

	t.Run("backend parameters are validated", func(t *testing.T) {
		src := &model.DataSource{
			Type:       model.SourceTypeGit,
			SourceURL:  "https://github.com/org/repo",
			Parameters: map[string]string{"bogus": "x"},
		}
		if _, err := backend.New(src); err == nil {
			t.Error("New() expected error for unknown parameter")
		}
	})
}
