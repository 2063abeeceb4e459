// Package fileutil provides the filesystem primitives shared by placement,
// workspace maintenance and configuration: streaming copies, whole-tree copy
// and move, directory sizing, and atomic writes.
package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	_, err := copyFileCount(src, dst, mode)
	return err
}

func copyFileCount(src, dst string, mode os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		return written, err
	}
	return written, out.Close()
}

// CopyTree recursively copies the directory src to dst, which must not exist
// yet. File and directory permissions are preserved and symlinks are recreated
// rather than followed. It returns the number of file bytes copied.
func CopyTree(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return 0, fmt.Errorf("copy tree: destination %s: %w", dst, fs.ErrExist)
	} else if !os.IsNotExist(err) {
		return 0, err
	}

	var total int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			// Owner write is kept so the rest of the tree can be populated.
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			n, err := copyFileCount(path, target, info.Mode().Perm())
			total += n
			return err
		default:
			// Devices, sockets and pipes have no place in an asset tree.
			return nil
		}
	})
	if err != nil {
		return total, fmt.Errorf("copy tree %s: %w", src, err)
	}
	return total, nil
}

// DirSize returns the total size of regular files under root.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
