package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile creates path holding size bytes of filler (at least one byte).
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteText(t, path, strings.Repeat("B", int(max(size, 1))))
}

// WriteText writes body to path, creating parent directories.
func WriteText(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadText returns the contents of path or fails the test.
func ReadText(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// AssertMissing fails the test when path exists.
func AssertMissing(t testing.TB, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent (stat err=%v)", path, err)
	}
}
