package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// MkdirParents creates dir and any missing ancestors like os.MkdirAll, but
// reports the directories it actually created, outermost first, so a caller
// can undo them with RemoveEmptyDirs.
func MkdirParents(dir string, perm os.FileMode) ([]string, error) {
	var missing []string
	for current := filepath.Clean(dir); ; {
		_, err := os.Lstat(current)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, current)
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	slices.Reverse(missing)

	var created []string
	for _, d := range missing {
		err := os.Mkdir(d, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return created, err
		}
		created = append(created, d)
	}
	return created, nil
}

// RemoveEmptyDirs removes dirs innermost first. Directories that are no longer
// empty are left alone.
func RemoveEmptyDirs(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}
