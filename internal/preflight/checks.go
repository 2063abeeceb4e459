package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Access modes for CheckDirectoryAccess.
const (
	AccessRead      uint32 = unix.R_OK | unix.X_OK
	AccessReadWrite uint32 = unix.R_OK | unix.W_OK | unix.X_OK
)

// CheckDirectoryAccess verifies that the directory exists and grants mode.
func CheckDirectoryAccess(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	if mode&unix.W_OK != 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckAbsent passes when path does not exist yet. An organizer run refuses to
// reuse an existing output directory.
func CheckAbsent(name, path string) Result {
	if _, err := os.Lstat(path); err == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: already exists, the run would abort)", path)}
	} else if !os.IsNotExist(err) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckParentWritable verifies that path could be created: its nearest
// existing ancestor must be a writable directory.
func CheckParentWritable(name, path string) Result {
	ancestor := filepath.Dir(filepath.Clean(path))
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, ancestor, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable via %s)", path, ancestor)}
}

// CheckOverlap rejects output locations that coincide with or contain the
// source tree. An output inside the source is allowed because the scan skips it.
func CheckOverlap(target, output string) Result {
	const name = "Path layout"
	target = filepath.Clean(target)
	output = filepath.Clean(output)
	switch {
	case target == output:
		return Result{Name: name, Detail: "output directory equals source directory"}
	case isWithin(target, output):
		return Result{Name: name, Detail: fmt.Sprintf("source %s is inside output %s", target, output)}
	case isWithin(output, target):
		return Result{Name: name, Passed: true, Detail: "output inside source (excluded from scan)"}
	default:
		return Result{Name: name, Passed: true, Detail: "separate trees"}
	}
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
