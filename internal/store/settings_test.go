package store

import (
	"testing"

	"github.com/tansyhq/choreboard/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestGetMissingKeyReturnsEmpty(t *testing.T) {
	ss := setupSettingsTestDB(t)

	value, err := ss.Get(KeyLastResetDate)
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if value != "" {
		t.Errorf("missing key = %q, want empty string", value)
	}
}

func TestSetAndGet(t *testing.T) {
	ss := setupSettingsTestDB(t)

	if err := ss.Set(KeyLastResetDate, "2025-06-02"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := ss.Get(KeyLastResetDate)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "2025-06-02" {
		t.Errorf("value = %q, want 2025-06-02", value)
	}
}

func TestSetUpserts(t *testing.T) {
	ss := setupSettingsTestDB(t)

	ss.Set(KeyLastResetWeek, "2025-06-02")
	if err := ss.Set(KeyLastResetWeek, "2025-06-09"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, _ := ss.Get(KeyLastResetWeek)
	if value != "2025-06-09" {
		t.Errorf("value = %q, want 2025-06-09", value)
	}

	all, err := ss.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d settings, want 1 (upsert, not insert)", len(all))
	}
}
