package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffResult summarizes how a file has drifted from its backup.
type DiffResult struct {
	Changed    bool   `json:"changed"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
	// Pretty is an ANSI-colored rendering for terminal display.
	Pretty string `json:"-"`
}

// Diff compares entry's stored contents against the file as it is now.
// A missing current file diffs against empty content.
func (m *Manager) Diff(entry *Entry) (*DiffResult, error) {
	stored, err := os.ReadFile(entry.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", entry.BackupPath, err)
	}

	current, err := os.ReadFile(entry.OriginalPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", entry.OriginalPath, err)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(stored), string(current), false)

	res := &DiffResult{}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			res.Insertions++
		case diffmatchpatch.DiffDelete:
			res.Deletions++
		}
	}
	res.Changed = res.Insertions > 0 || res.Deletions > 0
	if res.Changed {
		res.Pretty = dmp.DiffPrettyText(diffs)
	}
	return res, nil
}
