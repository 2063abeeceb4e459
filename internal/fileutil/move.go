package fileutil

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// MoveTree renames the directory src to dst. When the two paths sit on
// different filesystems the tree is copied and src removed afterwards. It
// returns the number of file bytes now under dst.
func MoveTree(src, dst string) (int64, error) {
	if _, err := os.Lstat(dst); err == nil {
		return 0, fmt.Errorf("move tree: destination %s: %w", dst, os.ErrExist)
	}
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return DirSize(dst)
	}

	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return 0, renameErr
	}

	copied, err := CopyTree(src, dst)
	if err != nil {
		_ = os.RemoveAll(dst)
		return 0, err
	}
	if err := os.RemoveAll(src); err != nil {
		return copied, fmt.Errorf("remove %s after cross-device copy: %w", src, err)
	}
	return copied, nil
}
