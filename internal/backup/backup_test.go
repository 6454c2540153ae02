package backup

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestManager(t *testing.T, keep int) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "backups"), keep, log.New(io.Discard))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndList(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	writeFile(t, source, "setting = 1\n")

	entry, err := m.Create(source)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.OriginalPath != source {
		t.Errorf("original path = %q, want %q", entry.OriginalPath, source)
	}
	if entry.Size != int64(len("setting = 1\n")) {
		t.Errorf("size = %d", entry.Size)
	}

	data, err := os.ReadFile(entry.BackupPath)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(data) != "setting = 1\n" {
		t.Errorf("backup content = %q", data)
	}

	entries, err := m.List(source)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].BackupPath != entry.BackupPath {
		t.Errorf("List = %+v", entries)
	}
}

func TestCreate_MissingSource(t *testing.T) {
	m := newTestManager(t, 0)
	_, err := m.Create(filepath.Join(t.TempDir(), "nope.conf"))
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("err = %v, want ErrSourceMissing", err)
	}
}

func TestList_FiltersAndEmptyDir(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	// No backup directory yet.
	entries, err := m.List("")
	if err != nil || entries != nil {
		t.Fatalf("List on fresh manager = %v, %v", entries, err)
	}

	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	writeFile(t, a, "a")
	writeFile(t, b, "b")
	if _, err := m.Create(a); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(b); err != nil {
		t.Fatal(err)
	}

	all, err := m.List("")
	if err != nil || len(all) != 2 {
		t.Fatalf("List(all) = %d entries, %v", len(all), err)
	}
	onlyA, err := m.List(a)
	if err != nil || len(onlyA) != 1 || onlyA[0].OriginalPath != a {
		t.Fatalf("List(a) = %+v, %v", onlyA, err)
	}
}

func TestPathsWithUnderscoresRoundTrip(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "my_app_settings.conf")
	writeFile(t, source, "x")

	if _, err := m.Create(source); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry, err := m.Latest(source)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if entry.OriginalPath != source {
		t.Errorf("original path mangled: %q", entry.OriginalPath)
	}
}

func TestRestore(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	writeFile(t, source, "original\n")

	entry, err := m.Create(source)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	writeFile(t, source, "clobbered\n")

	if err := m.Restore(entry, ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, _ := os.ReadFile(source)
	if string(data) != "original\n" {
		t.Errorf("restored content = %q", data)
	}

	// The clobbered version was preserved before the restore overwrote it.
	entries, err := m.List(source)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected pre-restore backup, got %d entries", len(entries))
	}
	preserved, err := os.ReadFile(entries[0].BackupPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(preserved) != "clobbered\n" {
		t.Errorf("pre-restore backup content = %q", preserved)
	}
}

func TestRestore_ToDifferentTarget(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	writeFile(t, source, "contents\n")
	entry, err := m.Create(source)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	target := filepath.Join(dir, "elsewhere", "copy.conf")
	if err := m.Restore(entry, target); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "contents\n" {
		t.Errorf("restored-to-target content = %q", data)
	}
}

func TestLatest_NoBackups(t *testing.T) {
	m := newTestManager(t, 0)
	if _, err := m.Latest("/nonexistent/path.conf"); !errors.Is(err, ErrNoBackups) {
		t.Fatalf("err = %v, want ErrNoBackups", err)
	}
}

func TestKeepBoundsBackupsPerPath(t *testing.T) {
	m := newTestManager(t, 2)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	for i := 0; i < 4; i++ {
		writeFile(t, source, strings.Repeat("x", i+1))
		if _, err := m.Create(source); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	entries, err := m.List(source)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("kept %d backups, want 2", len(entries))
	}
	// Newest survives.
	data, _ := os.ReadFile(entries[0].BackupPath)
	if string(data) != "xxxx" {
		t.Errorf("newest backup content = %q", data)
	}
}

func TestPrune(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	for i := 0; i < 3; i++ {
		writeFile(t, source, strings.Repeat("y", i+1))
		if _, err := m.Create(source); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	removed, err := m.Prune(1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	entries, _ := m.List(source)
	if len(entries) != 1 {
		t.Errorf("remaining = %d, want 1", len(entries))
	}

	if n, err := m.Prune(0); err != nil || n != 0 {
		t.Errorf("Prune(0) = %d, %v; want no-op", n, err)
	}
}

func TestDiff(t *testing.T) {
	m := newTestManager(t, 0)
	dir := t.TempDir()

	source := filepath.Join(dir, "app.conf")
	writeFile(t, source, "alpha\nbeta\n")
	entry, err := m.Create(source)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("unchanged", func(t *testing.T) {
		res, err := m.Diff(entry)
		if err != nil {
			t.Fatalf("Diff: %v", err)
		}
		if res.Changed {
			t.Errorf("unchanged file reported changed: %+v", res)
		}
		if res.Pretty != "" {
			t.Errorf("pretty diff for unchanged file: %q", res.Pretty)
		}
	})

	t.Run("edited", func(t *testing.T) {
		writeFile(t, source, "alpha\ngamma\n")
		res, err := m.Diff(entry)
		if err != nil {
			t.Fatalf("Diff: %v", err)
		}
		if !res.Changed {
			t.Fatalf("edited file reported unchanged")
		}
		if res.Insertions == 0 || res.Deletions == 0 {
			t.Errorf("edit should count both sides: %+v", res)
		}
		if res.Pretty == "" {
			t.Errorf("no pretty rendering")
		}
	})

	t.Run("deleted", func(t *testing.T) {
		if err := os.Remove(source); err != nil {
			t.Fatal(err)
		}
		res, err := m.Diff(entry)
		if err != nil {
			t.Fatalf("Diff: %v", err)
		}
		if !res.Changed || res.Deletions == 0 {
			t.Errorf("deleted file should diff as deletions: %+v", res)
		}
	})
}
