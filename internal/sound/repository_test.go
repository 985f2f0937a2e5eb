package sound

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/wavecue/wavecue-core/internal/infrastructure/database"
	_ "github.com/wavecue/wavecue-core/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func TestSoundRepositoryAddAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := &Sound{ID: "s1", ScopeID: "scope-1", Name: "airhorn", Filename: "airhorn.mp3"}
	if err := repo.Add(ctx, s); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := repo.Get(ctx, "scope-1", "airhorn")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Filename != "airhorn.mp3" || got.PlayCount != 0 {
		t.Errorf("got %+v, want round-tripped sound", got)
	}
	if got.AddedAt.IsZero() {
		t.Error("AddedAt should be set on insert")
	}

	if _, err := repo.Get(ctx, "scope-1", "ghost"); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSoundNotFound", err)
	}
}

func TestSoundRepositoryUniqueNamePerScope(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first := &Sound{ID: "s1", ScopeID: "scope-1", Name: "airhorn", Filename: "a.mp3"}
	if err := repo.Add(ctx, first); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	dup := &Sound{ID: "s2", ScopeID: "scope-1", Name: "airhorn", Filename: "b.mp3"}
	if err := repo.Add(ctx, dup); !errors.Is(err, ErrSoundExists) {
		t.Errorf("duplicate Add() error = %v, want ErrSoundExists", err)
	}

	// Same name in another scope is fine.
	other := &Sound{ID: "s3", ScopeID: "scope-2", Name: "airhorn", Filename: "c.mp3"}
	if err := repo.Add(ctx, other); err != nil {
		t.Errorf("cross-scope Add() error = %v, want nil", err)
	}
}

func TestSoundRepositoryRename(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := &Sound{ID: "s1", ScopeID: "scope-1", Name: "airhorn", Filename: "a.mp3"}
	if err := repo.Add(ctx, s); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := repo.Rename(ctx, "scope-1", "airhorn", "horn"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, err := repo.Get(ctx, "scope-1", "horn"); err != nil {
		t.Errorf("Get(new name) error = %v", err)
	}
	if _, err := repo.Get(ctx, "scope-1", "airhorn"); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("Get(old name) error = %v, want ErrSoundNotFound", err)
	}

	if err := repo.Rename(ctx, "scope-1", "ghost", "x"); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("Rename(missing) error = %v, want ErrSoundNotFound", err)
	}
}

func TestSoundRepositoryRenameCollision(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, s := range []*Sound{
		{ID: "s1", ScopeID: "scope-1", Name: "airhorn", Filename: "a.mp3"},
		{ID: "s2", ScopeID: "scope-1", Name: "drums", Filename: "d.mp3"},
	} {
		if err := repo.Add(ctx, s); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	if err := repo.Rename(ctx, "scope-1", "drums", "airhorn"); !errors.Is(err, ErrSoundExists) {
		t.Errorf("Rename(collision) error = %v, want ErrSoundExists", err)
	}
}

func TestSoundRepositoryIncrementPlayCount(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	s := &Sound{ID: "s1", ScopeID: "scope-1", Name: "airhorn", Filename: "a.mp3"}
	if err := repo.Add(ctx, s); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementPlayCount(ctx, "scope-1", "airhorn"); err != nil {
			t.Fatalf("IncrementPlayCount() error = %v", err)
		}
	}

	got, err := repo.Get(ctx, "scope-1", "airhorn")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PlayCount != 3 {
		t.Errorf("play count = %d, want 3", got.PlayCount)
	}

	if err := repo.IncrementPlayCount(ctx, "scope-1", "ghost"); !errors.Is(err, ErrSoundNotFound) {
		t.Errorf("IncrementPlayCount(missing) error = %v, want ErrSoundNotFound", err)
	}
}

func TestSoundRepositoryScopeConfig(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	// Unset key reports not-set.
	_, set, err := repo.GetConfig(ctx, "scope-1", ConfigMaxDuration)
	if err != nil || set {
		t.Errorf("GetConfig(unset) = (set=%v, err=%v), want not set", set, err)
	}

	if err := repo.SetConfig(ctx, "scope-1", ConfigMaxDuration, 45); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	value, set, err := repo.GetConfig(ctx, "scope-1", ConfigMaxDuration)
	if err != nil || !set || value != 45 {
		t.Errorf("GetConfig() = (%d, %v, %v), want (45, true, nil)", value, set, err)
	}

	// Upsert overwrites.
	if err := repo.SetConfig(ctx, "scope-1", ConfigMaxDuration, 90); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	value, _, _ = repo.GetConfig(ctx, "scope-1", ConfigMaxDuration)
	if value != 90 {
		t.Errorf("value = %d, want 90 after upsert", value)
	}

	if err := repo.SetConfig(ctx, "scope-1", "volume", 1); !errors.Is(err, ErrUnknownConfigKey) {
		t.Errorf("SetConfig(unknown key) error = %v, want ErrUnknownConfigKey", err)
	}
	if err := repo.SetConfig(ctx, "scope-1", ConfigMaxDuration, 0); !errors.Is(err, ErrInvalidConfigValue) {
		t.Errorf("SetConfig(zero) error = %v, want ErrInvalidConfigValue", err)
	}
}
