package storage

import (
	"context"
	"testing"
)

// storeFixtures returns each Store implementation under a name.
func storeFixtures(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(context.Background(), "absent")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok {
				t.Error("expected miss for absent key")
			}
		})
	}
}

func TestStoreSetAndGet(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Set(ctx, "k1", "v1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			value, ok, err := store.Get(ctx, "k1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !ok {
				t.Fatal("expected hit")
			}
			if value != "v1" {
				t.Errorf("expected 'v1', got %q", value)
			}
		})
	}
}

func TestStoreSetReplaces(t *testing.T) {
	for name, store := range storeFixtures(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Set(ctx, "k1", "old"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := store.Set(ctx, "k1", "new"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			value, ok, err := store.Get(ctx, "k1")
			if err != nil || !ok {
				t.Fatalf("Get failed: ok=%v err=%v", ok, err)
			}
			if value != "new" {
				t.Errorf("expected replaced value, got %q", value)
			}
		})
	}
}

func TestSqlitePersistsAcrossOpens(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	ctx := context.Background()

	first, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := first.Set(ctx, "k1", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	value, ok, err := second.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get after reopen failed: ok=%v err=%v", ok, err)
	}
	if value != "v1" {
		t.Errorf("expected persisted value, got %q", value)
	}
}
