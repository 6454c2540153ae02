// Package backup preserves copies of configuration files before guarded
// commands edit them, and can restore or diff them afterwards.
package backup

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrSourceMissing is returned when the file to back up does not exist yet.
var ErrSourceMissing = errors.New("source file does not exist")

// ErrNoBackups is returned when no backup exists for a path.
var ErrNoBackups = errors.New("no backups found")

const (
	backupSuffix = ".bak"
	metaSuffix   = ".bak.meta.json"
)

// Entry describes one stored backup. The original path lives in a metadata
// sidecar, not the filename, so paths containing underscores round-trip.
type Entry struct {
	BackupPath   string    `json:"backup_path"`
	OriginalPath string    `json:"original_path"`
	CreatedAt    time.Time `json:"created_at"`
	Size         int64     `json:"size"`
	Mode         uint32    `json:"mode"`
}

// Manager stores and restores file backups under a single directory.
type Manager struct {
	dir  string
	keep int
	log  *log.Logger
}

// DefaultDir returns the backup location under the user's home directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".runguard", "backups"), nil
}

// NewManager creates a manager rooted at dir. keep bounds how many backups
// are retained per original path after each Create; 0 keeps everything.
func NewManager(dir string, keep int, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{dir: dir, keep: keep, log: logger}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create copies path into the backup directory and returns the new entry.
// It returns ErrSourceMissing when the file does not exist yet, which
// callers usually treat as "nothing to preserve".
func (m *Manager) Create(path string) (*Entry, error) {
	src, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSourceMissing
		}
		return nil, fmt.Errorf("inspecting %s: %w", src, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot back up directory %s", src)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	stamp := time.Now().UTC()
	name := fmt.Sprintf("%s__%s__%s%s",
		sanitizePath(src), stamp.Format("20060102-150405"), shortID(), backupSuffix)
	dst := filepath.Join(m.dir, name)

	if err := copyFile(src, dst, info.Mode()); err != nil {
		return nil, fmt.Errorf("copying %s: %w", src, err)
	}

	entry := &Entry{
		BackupPath:   dst,
		OriginalPath: src,
		CreatedAt:    stamp,
		Size:         info.Size(),
		Mode:         uint32(info.Mode().Perm()),
	}
	if err := writeMeta(dst, entry); err != nil {
		os.Remove(dst)
		return nil, err
	}

	m.log.Debug("backup created", "original", src, "backup", dst)

	if m.keep > 0 {
		if _, err := m.prunePath(src, m.keep); err != nil {
			m.log.Warn("pruning old backups", "path", src, "err", err)
		}
	}

	return entry, nil
}

// List returns stored backups, newest first. A non-empty originalPath keeps
// only backups of that file.
func (m *Manager) List(originalPath string) ([]*Entry, error) {
	if originalPath != "" {
		abs, err := filepath.Abs(originalPath)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", originalPath, err)
		}
		originalPath = abs
	}

	dirents, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var entries []*Entry
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), metaSuffix) {
			continue
		}
		entry, err := readMeta(filepath.Join(m.dir, d.Name()))
		if err != nil {
			m.log.Warn("skipping unreadable backup metadata", "file", d.Name(), "err", err)
			continue
		}
		if originalPath != "" && entry.OriginalPath != originalPath {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].BackupPath > entries[j].BackupPath
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Latest returns the newest backup of originalPath.
func (m *Manager) Latest(originalPath string) (*Entry, error) {
	entries, err := m.List(originalPath)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoBackups
	}
	return entries[0], nil
}

// Restore copies entry's contents back over target; an empty target means
// the original path. The current target is backed up first so a restore is
// itself reversible.
func (m *Manager) Restore(entry *Entry, target string) error {
	if target == "" {
		target = entry.OriginalPath
	}

	if _, err := os.Stat(target); err == nil {
		if _, err := m.Create(target); err != nil {
			return fmt.Errorf("preserving current %s before restore: %w", target, err)
		}
	}

	mode := fs.FileMode(entry.Mode)
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	if err := copyFile(entry.BackupPath, target, mode); err != nil {
		return fmt.Errorf("restoring %s: %w", target, err)
	}

	m.log.Debug("backup restored", "backup", entry.BackupPath, "target", target)
	return nil
}

// Prune keeps the newest keep backups per original path and deletes the
// rest, returning how many were removed.
func (m *Manager) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := m.List("")
	if err != nil {
		return 0, err
	}

	byPath := make(map[string][]*Entry)
	for _, e := range entries {
		byPath[e.OriginalPath] = append(byPath[e.OriginalPath], e)
	}

	removed := 0
	for _, group := range byPath {
		// List already sorted newest first.
		for _, e := range group[min(keep, len(group)):] {
			if err := m.remove(e); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// prunePath prunes backups of a single original path.
func (m *Manager) prunePath(originalPath string, keep int) (int, error) {
	entries, err := m.List(originalPath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries[min(keep, len(entries)):] {
		if err := m.remove(e); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) remove(e *Entry) error {
	if err := os.Remove(e.BackupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", e.BackupPath, err)
	}
	if err := os.Remove(metaPath(e.BackupPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", metaPath(e.BackupPath), err)
	}
	return nil
}

// sanitizePath flattens a path into a filename fragment.
func sanitizePath(path string) string {
	s := strings.TrimPrefix(path, string(filepath.Separator))
	return strings.ReplaceAll(s, string(filepath.Separator), "_")
}

func shortID() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	return hex.EncodeToString(b)
}

func metaPath(backupPath string) string {
	return strings.TrimSuffix(backupPath, backupSuffix) + metaSuffix
}

func writeMeta(backupPath string, entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup metadata: %w", err)
	}
	if err := os.WriteFile(metaPath(backupPath), data, 0o644); err != nil {
		return fmt.Errorf("writing backup metadata: %w", err)
	}
	return nil
}

func readMeta(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup metadata: %w", err)
	}
	entry := &Entry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("decoding backup metadata: %w", err)
	}
	return entry, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
