package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchRegistersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	if err := os.WriteFile(path, []byte("case_id,activity\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	paths := w.Paths()
	if len(paths) != 1 {
		t.Fatalf("got %d watched paths, want 1", len(paths))
	}
	if filepath.Base(paths[0]) != "events.csv" {
		t.Errorf("watched path = %q", paths[0])
	}
}

func TestWatchMissingFile(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error watching a missing file")
	}
}

func TestFireSkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	if err := os.WriteFile(path, []byte("case_id,activity\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	calls := 0
	w.OnChange = func(string) error {
		calls++
		return nil
	}

	abs, _ := filepath.Abs(path)
	state := w.files[abs]

	// Size and mtime match the registration snapshot, so no trigger.
	w.fire(abs, state)
	if calls != 0 {
		t.Fatalf("got %d calls for unchanged file, want 0", calls)
	}

	if err := os.WriteFile(path, []byte("case_id,activity\nA,Submit\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.fire(abs, state)
	if calls != 1 {
		t.Fatalf("got %d calls after content change, want 1", calls)
	}

	// State was updated, so firing again without a new write is a no-op.
	w.fire(abs, state)
	if calls != 1 {
		t.Fatalf("got %d calls after repeat fire, want 1", calls)
	}
}

func TestSetDebounce(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.SetDebounce(2 * time.Second)
	if w.debounce != 2*time.Second {
		t.Errorf("debounce = %v", w.debounce)
	}
	w.SetDebounce(0)
	if w.debounce != 2*time.Second {
		t.Errorf("zero debounce should be ignored, got %v", w.debounce)
	}
}
