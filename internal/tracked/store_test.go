package tracked

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"weathergo/internal/core"
)

func TestStore_AddAndLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "zips.json")

	store := NewStore(file)
	if err := store.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("fresh store has %d entries", store.Len())
	}

	for _, z := range []string{"75454", "10001", "75454"} {
		if err := store.Add(z); err != nil {
			t.Fatalf("Add(%q): %v", z, err)
		}
	}
	if store.Len() != 2 {
		t.Errorf("len = %d, want 2 (duplicate ignored)", store.Len())
	}

	// A fresh store reading the same file sees the same set.
	reloaded := NewStore(file)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.List()
	want := []string{"10001", "75454"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStore_AddRejectsInvalidZIP(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "zips.json"))

	for _, z := range []string{"1234", "123456", "abcde", ""} {
		err := store.Add(z)
		var apiErr *core.APIError
		if !errors.As(err, &apiErr) || apiErr.Type != core.ErrorTypeInvalidInput {
			t.Errorf("Add(%q): expected invalid_input, got %v", z, err)
		}
	}
	if store.Len() != 0 {
		t.Errorf("invalid ZIPs were stored: %v", store.List())
	}
}

func TestStore_AddTrimsZIP(t *testing.T) {
	store := NewStore("")
	if err := store.Add("  75454 "); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !store.Contains("75454") {
		t.Error("trimmed ZIP not tracked")
	}
}

func TestStore_Remove(t *testing.T) {
	file := filepath.Join(t.TempDir(), "zips.json")
	store := NewStore(file)

	if err := store.Add("75454"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("75454"); err != nil {
		t.Fatal(err)
	}
	if store.Contains("75454") {
		t.Error("removed ZIP still tracked")
	}

	// Removal persisted.
	reloaded := NewStore(file)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Errorf("reloaded store has %d entries", reloaded.Len())
	}

	// Removing an untracked ZIP is a no-op.
	if err := store.Remove("99999"); err != nil {
		t.Errorf("Remove of untracked ZIP: %v", err)
	}
}

func TestStore_LoadDropsInvalidEntries(t *testing.T) {
	file := filepath.Join(t.TempDir(), "zips.json")
	content := `{"version": 1, "zips": ["75454", "not-a-zip", "1234"]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(file)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Len() != 1 || !store.Contains("75454") {
		t.Errorf("List() = %v, want [75454]", store.List())
	}
}

func TestStore_LoadInvalidJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "zips.json")
	if err := os.WriteFile(file, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(file)
	if err := store.Load(); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestStore_EmptyPathIsMemoryOnly(t *testing.T) {
	store := NewStore("")
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Add("75454"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !store.Contains("75454") {
		t.Error("in-memory store lost the entry")
	}
}

func TestStore_CreatesDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "dir", "zips.json")
	store := NewStore(file)

	if err := store.Add("75454"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		t.Error("tracked ZIP file was not created")
	}
}
