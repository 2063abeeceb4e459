package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"modelsort/internal/fileutil"
	"modelsort/internal/logging"
	"modelsort/internal/runid"
)

// CleanStaleResult contains the outcome of a stale workspace cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo contains metadata about a leftover workspace.
type DirInfo struct {
	Name    string
	Path    string
	RunID   string
	Created time.Time
	Size    int64
}

// Age returns how long ago the workspace was created.
func (d DirInfo) Age() time.Duration {
	return time.Since(d.Created)
}

// WorkspacePath returns the workspace directory for one run.
func WorkspacePath(tempBase, id string) string {
	return tempBase + id
}

// ListDirectories returns the workspaces that belong to tempBase, oldest first.
func ListDirectories(tempBase string) ([]DirInfo, error) {
	tempBase = strings.TrimSpace(tempBase)
	if tempBase == "" {
		return nil, nil
	}
	parent := filepath.Dir(tempBase)
	prefix := filepath.Base(tempBase)

	entries, err := os.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		id := strings.TrimPrefix(entry.Name(), prefix)
		created, ok := runid.Time(id)
		if !ok {
			continue
		}

		dirPath := filepath.Join(parent, entry.Name())
		size, _ := fileutil.DirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			RunID:   id,
			Created: created,
			Size:    size,
		})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].RunID < dirs[j].RunID })
	return dirs, nil
}

// CleanStale removes workspaces of tempBase created more than maxAge ago.
// A maxAge of zero removes every workspace.
func CleanStale(ctx context.Context, tempBase string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dirs, err := ListDirectories(tempBase)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: filepath.Dir(tempBase), Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if maxAge > 0 && !dir.Created.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale workspace", "workspace_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed stale workspace",
				logging.String("path", dir.Path),
				logging.Duration("age", dir.Age().Round(time.Second)),
				logging.Size("size", dir.Size),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		}
	}

	return result
}
