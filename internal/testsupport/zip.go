package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// ZipEntry is one member of a fixture archive.
type ZipEntry struct {
	Name string
	Body []byte
	// NonUTF8 stores Name as raw bytes without the UTF-8 flag.
	NonUTF8 bool
}

// File is shorthand for a text entry.
func File(name, body string) ZipEntry {
	return ZipEntry{Name: name, Body: []byte(body)}
}

// Dir is shorthand for an explicit directory entry.
func Dir(name string) ZipEntry {
	return ZipEntry{Name: name + "/"}
}

// Nested builds an entry whose body is itself a zip archive.
func Nested(t testing.TB, name string, entries ...ZipEntry) ZipEntry {
	t.Helper()
	return ZipEntry{Name: name, Body: ZipBytes(t, entries...)}
}

// ZipBytes encodes entries as an in-memory zip archive.
func ZipBytes(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		header := &zip.FileHeader{Name: entry.Name, Method: zip.Deflate, NonUTF8: entry.NonUTF8}
		w, err := zw.CreateHeader(header)
		if err != nil {
			t.Fatalf("zip create %s: %v", entry.Name, err)
		}
		if len(entry.Body) > 0 {
			if _, err := w.Write(entry.Body); err != nil {
				t.Fatalf("zip write %s: %v", entry.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a fixture archive to path, creating parent directories.
func WriteZip(t testing.TB, path string, entries ...ZipEntry) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, ZipBytes(t, entries...), 0o644); err != nil {
		t.Fatalf("write zip %s: %v", path, err)
	}
}

// WriteCorruptZip writes a file with a zip extension that cannot be opened.
func WriteCorruptZip(t testing.TB, path string) {
	t.Helper()
	WriteText(t, path, "PK\x03\x04 this is not really a zip archive")
}
