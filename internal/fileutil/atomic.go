package fileutil

import "os"

// AtomicWriteFile writes data to name so that readers observe either the old
// contents or the new ones, never a partial file.
func AtomicWriteFile(name string, data []byte, perm os.FileMode) error {
	return atomicWriteFile(name, data, perm)
}
