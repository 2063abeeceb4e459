//go:build !windows

package fileutil

import (
	"os"

	"github.com/google/renameio"
)

func atomicWriteFile(name string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(name, data, perm)
}
