package database_test

import (
	"context"
	"testing"
	"time"

	"dsync/internal/database"
	"dsync/internal/model"
	"dsync/internal/testutil"
)

func newTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func testSource(id, name string) *model.DataSource {
	return &model.DataSource{
		ID:        id,
		Name:      name,
		Type:      model.SourceTypeGit,
		SourceURL: "https://github.com/org/" + name,
		Status:    model.StatusNew,
		Enabled:   true,
		Parameters: map[string]string{
			"branch": "main",
		},
		Created: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func testFile(id, sourceID, path, content string) *model.DataFile {
	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return &model.DataFile{
		ID:          id,
		SourceID:    sourceID,
		Path:        path,
		Size:        int64(len(content)),
		Hash:        testutil.SHA256Hex([]byte(content)),
		Data:        []byte(content),
		Created:     created,
		LastUpdated: created,
	}
}

func TestSQLiteStore_DataSources(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get round-trip", func(t *testing.T) {
		store := newTestStore(t)
		src := testSource("src-1", "repo-a")
		if err := store.CreateDataSource(ctx, src); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		got, err := store.GetDataSource(ctx, "src-1")
		if err != nil {
			t.Fatalf("GetDataSource() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetDataSource() = nil, want source")
		}
		if got.Name != "repo-a" || got.Type != model.SourceTypeGit ||
			got.Status != model.StatusNew || !got.Enabled {
			t.Errorf("round-trip mismatch: %+v", got)
		}
		if got.Parameters["branch"] != "main" {
			t.Errorf("Parameters = %v, want branch=main", got.Parameters)
		}
		if got.LastSynced != nil {
			t.Errorf("LastSynced = %v, want nil", got.LastSynced)
		}
	})

	t.Run("get by name", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		got, err := store.GetDataSourceByName(ctx, "repo-a")
		if err != nil {
			t.Fatalf("GetDataSourceByName() error = %v", err)
		}
		if got == nil || got.ID != "src-1" {
			t.Errorf("GetDataSourceByName() = %+v, want src-1", got)
		}
	})

	t.Run("not found returns nil without error", func(t *testing.T) {
		store := newTestStore(t)
		got, err := store.GetDataSource(ctx, "missing")
		if err != nil {
			t.Fatalf("GetDataSource() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetDataSource() = %+v, want nil", got)
		}

		got, err = store.GetDataSourceByName(ctx, "missing")
		if err != nil {
			t.Fatalf("GetDataSourceByName() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetDataSourceByName() = %+v, want nil", got)
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}
		if err := store.CreateDataSource(ctx, testSource("src-2", "repo-a")); err == nil {
			t.Error("CreateDataSource() expected error for duplicate name")
		}
	})

	t.Run("list orders by name", func(t *testing.T) {
		store := newTestStore(t)
		for _, name := range []string{"zeta", "alpha", "mid"} {
			if err := store.CreateDataSource(ctx, testSource("src-"+name, name)); err != nil {
				t.Fatalf("CreateDataSource(%s) error = %v", name, err)
			}
		}

		sources, err := store.ListDataSources(ctx)
		if err != nil {
			t.Fatalf("ListDataSources() error = %v", err)
		}
		if len(sources) != 3 {
			t.Fatalf("got %d sources, want 3", len(sources))
		}
		for i, want := range []string{"alpha", "mid", "zeta"} {
			if sources[i].Name != want {
				t.Errorf("sources[%d].Name = %s, want %s", i, sources[i].Name, want)
			}
		}
	})

	t.Run("set enabled and status", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		if err := store.SetEnabled(ctx, "src-1", false); err != nil {
			t.Fatalf("SetEnabled() error = %v", err)
		}
		if err := store.SetStatus(ctx, "src-1", model.StatusFailed); err != nil {
			t.Fatalf("SetStatus() error = %v", err)
		}

		got, err := store.GetDataSource(ctx, "src-1")
		if err != nil {
			t.Fatalf("GetDataSource() error = %v", err)
		}
		if got.Enabled {
			t.Error("Enabled = true, want false")
		}
		if got.Status != model.StatusFailed {
			t.Errorf("Status = %s, want failed", got.Status)
		}
	})

	t.Run("delete cascades to data files", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}
		_, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-1", "src-1", "a.txt", "a"),
			testFile("file-2", "src-1", "b.txt", "b"),
		})
		if err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}

		if err := store.DeleteDataSource(ctx, "src-1"); err != nil {
			t.Fatalf("DeleteDataSource() error = %v", err)
		}

		files, err := store.ListDataFiles(ctx, "src-1")
		if err != nil {
			t.Fatalf("ListDataFiles() error = %v", err)
		}
		if len(files) != 0 {
			t.Errorf("got %d orphaned files, want 0", len(files))
		}
	})
}

func TestSQLiteStore_BeginSync(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a ready source", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		ok, err := store.BeginSync(ctx, "src-1")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if !ok {
			t.Fatal("BeginSync() = false, want true")
		}

		got, _ := store.GetDataSource(ctx, "src-1")
		if got.Status != model.StatusSyncing {
			t.Errorf("Status = %s, want syncing", got.Status)
		}
	})

	t.Run("second claim is refused", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		if ok, _ := store.BeginSync(ctx, "src-1"); !ok {
			t.Fatal("first BeginSync() = false, want true")
		}
		ok, err := store.BeginSync(ctx, "src-1")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if ok {
			t.Error("second BeginSync() = true, want false")
		}
	})

	t.Run("disabled source is refused", func(t *testing.T) {
		store := newTestStore(t)
		src := testSource("src-1", "repo-a")
		src.Enabled = false
		if err := store.CreateDataSource(ctx, src); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}

		ok, err := store.BeginSync(ctx, "src-1")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if ok {
			t.Error("BeginSync() = true for disabled source, want false")
		}
	})

	t.Run("queued source is refused", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}
		if err := store.SetStatus(ctx, "src-1", model.StatusQueued); err != nil {
			t.Fatalf("SetStatus() error = %v", err)
		}

		ok, err := store.BeginSync(ctx, "src-1")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if ok {
			t.Error("BeginSync() = true for queued source, want false")
		}
	})

	t.Run("unknown source is refused", func(t *testing.T) {
		store := newTestStore(t)
		ok, err := store.BeginSync(ctx, "missing")
		if err != nil {
			t.Fatalf("BeginSync() error = %v", err)
		}
		if ok {
			t.Error("BeginSync() = true for unknown source, want false")
		}
	})
}

func TestSQLiteStore_CompleteSync(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
		t.Fatalf("CreateDataSource() error = %v", err)
	}
	if ok, _ := store.BeginSync(ctx, "src-1"); !ok {
		t.Fatal("BeginSync() = false, want true")
	}

	at := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	if err := store.CompleteSync(ctx, "src-1", at); err != nil {
		t.Fatalf("CompleteSync() error = %v", err)
	}

	got, err := store.GetDataSource(ctx, "src-1")
	if err != nil {
		t.Fatalf("GetDataSource() error = %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.LastSynced == nil || !got.LastSynced.Equal(at) {
		t.Errorf("LastSynced = %v, want %v", got.LastSynced, at)
	}
}

func TestSQLiteStore_DataFiles(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *database.SQLiteStore {
		t.Helper()
		store := newTestStore(t)
		if err := store.CreateDataSource(ctx, testSource("src-1", "repo-a")); err != nil {
			t.Fatalf("CreateDataSource() error = %v", err)
		}
		return store
	}

	t.Run("bulk create and list", func(t *testing.T) {
		store := seed(t)
		n, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-2", "src-1", "b.txt", "b"),
			testFile("file-1", "src-1", "a.txt", "a"),
		})
		if err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}
		if n != 2 {
			t.Errorf("CreateDataFiles() = %d, want 2", n)
		}

		files, err := store.ListDataFiles(ctx, "src-1")
		if err != nil {
			t.Fatalf("ListDataFiles() error = %v", err)
		}
		if len(files) != 2 || files[0].Path != "a.txt" || files[1].Path != "b.txt" {
			t.Errorf("ListDataFiles() order/content mismatch: %+v", files)
		}
	})

	t.Run("get by source and path", func(t *testing.T) {
		store := seed(t)
		df := testFile("file-1", "src-1", "conf/site.yaml", "name: dc1\n")
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{df}); err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}

		got, err := store.GetDataFile(ctx, "src-1", "conf/site.yaml")
		if err != nil {
			t.Fatalf("GetDataFile() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetDataFile() = nil, want file")
		}
		if got.Hash != df.Hash || string(got.Data) != "name: dc1\n" {
			t.Errorf("round-trip mismatch: %+v", got)
		}

		missing, err := store.GetDataFile(ctx, "src-1", "nope.txt")
		if err != nil {
			t.Fatalf("GetDataFile() error = %v", err)
		}
		if missing != nil {
			t.Errorf("GetDataFile() = %+v, want nil", missing)
		}
	})

	t.Run("duplicate path for one source is rejected", func(t *testing.T) {
		store := seed(t)
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-1", "src-1", "a.txt", "a"),
		}); err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-2", "src-1", "a.txt", "other"),
		}); err == nil {
			t.Error("CreateDataFiles() expected error for duplicate path")
		}
	})

	t.Run("foreign key rejects orphan files", func(t *testing.T) {
		store := seed(t)
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-1", "no-such-source", "a.txt", "a"),
		}); err == nil {
			t.Error("CreateDataFiles() expected error for unknown source")
		}
	})

	t.Run("bulk update rewrites content fields", func(t *testing.T) {
		store := seed(t)
		df := testFile("file-1", "src-1", "a.txt", "before")
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{df}); err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}

		df.Data = []byte("after")
		df.Size = int64(len("after"))
		df.Hash = testutil.SHA256Hex([]byte("after"))
		df.LastUpdated = df.LastUpdated.Add(time.Hour)

		n, err := store.UpdateDataFiles(ctx, []*model.DataFile{df})
		if err != nil {
			t.Fatalf("UpdateDataFiles() error = %v", err)
		}
		if n != 1 {
			t.Errorf("UpdateDataFiles() = %d, want 1", n)
		}

		got, _ := store.GetDataFile(ctx, "src-1", "a.txt")
		if string(got.Data) != "after" || got.Hash != df.Hash || got.Size != df.Size {
			t.Errorf("update not persisted: %+v", got)
		}
		if !got.LastUpdated.Equal(df.LastUpdated) {
			t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, df.LastUpdated)
		}
	})

	t.Run("bulk delete reports affected rows", func(t *testing.T) {
		store := seed(t)
		if _, err := store.CreateDataFiles(ctx, []*model.DataFile{
			testFile("file-1", "src-1", "a.txt", "a"),
			testFile("file-2", "src-1", "b.txt", "b"),
		}); err != nil {
			t.Fatalf("CreateDataFiles() error = %v", err)
		}

		n, err := store.DeleteDataFiles(ctx, []string{"file-1", "file-2", "no-such-id"})
		if err != nil {
			t.Fatalf("DeleteDataFiles() error = %v", err)
		}
		if n != 2 {
			t.Errorf("DeleteDataFiles() = %d, want 2", n)
		}

		files, _ := store.ListDataFiles(ctx, "src-1")
		if len(files) != 0 {
			t.Errorf("got %d files after delete, want 0", len(files))
		}
	})

	t.Run("empty batches are no-ops", func(t *testing.T) {
		store := seed(t)
		if n, err := store.CreateDataFiles(ctx, nil); err != nil || n != 0 {
			t.Errorf("CreateDataFiles(nil) = (%d, %v), want (0, nil)", n, err)
		}
		if n, err := store.UpdateDataFiles(ctx, nil); err != nil || n != 0 {
			t.Errorf("UpdateDataFiles(nil) = (%d, %v), want (0, nil)", n, err)
		}
		if n, err := store.DeleteDataFiles(ctx, nil); err != nil || n != 0 {
			t.Errorf("DeleteDataFiles(nil) = (%d, %v), want (0, nil)", n, err)
		}
	})
}
