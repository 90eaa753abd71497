package testsupport

import (
	"context"
	"testing"
	"time"

	"citetally/internal/config"
	"citetally/internal/library"
	"citetally/internal/prefs"
)

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddRecord inserts a regular journal article with the given fields.
func AddRecord(t testing.TB, store *library.Store, fields map[string]string) *library.Record {
	t.Helper()
	return AddTypedRecord(t, store, "journalArticle", time.Time{}, fields)
}

// AddTypedRecord inserts a record with an explicit item type and date added.
func AddTypedRecord(t testing.TB, store *library.Store, itemType string, added time.Time, fields map[string]string) *library.Record {
	t.Helper()

	rec := library.NewRecord(itemType, fields)
	rec.DateAdded = added
	stored, err := store.Add(context.Background(), rec)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return stored
}

// MemoryPrefs returns an in-memory preference store seeded with values.
func MemoryPrefs(values map[string]string) *prefs.Memory {
	return prefs.NewMemory(values)
}
