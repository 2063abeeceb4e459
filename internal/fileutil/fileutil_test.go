package fileutil

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	// Check executable bits are set (umask may clear some bits).
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable bits, got %o", info.Mode().Perm())
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func assertTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if !bytes.Equal(got, []byte(body)) {
			t.Fatalf("%s: got %q want %q", rel, got, body)
		}
	}
}

func TestCopyTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	files := map[string]string{
		"chair.obj":          "v 0 0 0",
		"chair.mtl":          "newmtl wood",
		"textures/wood.png":  "png-bytes",
		"textures/deep/a.tx": "a",
	}
	writeTree(t, src, files)

	dst := filepath.Join(dir, "out", "Chair")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	n, err := CopyTree(src, dst)
	if err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	var want int64
	for _, body := range files {
		want += int64(len(body))
	}
	if n != want {
		t.Fatalf("copied %d bytes, want %d", n, want)
	}
	assertTree(t, dst, files)
	assertTree(t, src, files)

	size, err := DirSize(dst)
	if err != nil {
		t.Fatalf("DirSize: %v", err)
	}
	if size != want {
		t.Fatalf("DirSize = %d, want %d", size, want)
	}
}

func TestCopyTreeRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeTree(t, src, map[string]string{"a.obj": "a"})
	writeTree(t, dst, map[string]string{"keep.txt": "keep"})

	if _, err := CopyTree(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	assertTree(t, dst, map[string]string{"keep.txt": "keep"})
}

func TestMoveTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	files := map[string]string{"tree.obj": "v 1 1 1", "sub/leaf.png": "leaf"}
	writeTree(t, src, files)

	dst := filepath.Join(dir, "dst")
	n, err := MoveTree(src, dst)
	if err != nil {
		t.Fatalf("MoveTree: %v", err)
	}
	if n != int64(len("v 1 1 1")+len("leaf")) {
		t.Fatalf("unexpected byte count %d", n)
	}
	assertTree(t, dst, files)
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestMkdirParentsReportsCreated(t *testing.T) {
	base := t.TempDir()
	leaf := filepath.Join(base, "a", "b", "c")

	created, err := MkdirParents(leaf, 0o755)
	if err != nil {
		t.Fatalf("MkdirParents: %v", err)
	}
	want := []string{filepath.Join(base, "a"), filepath.Join(base, "a", "b"), leaf}
	if len(created) != len(want) {
		t.Fatalf("created = %v, want %v", created, want)
	}
	for i := range want {
		if created[i] != want[i] {
			t.Fatalf("created = %v, want %v", created, want)
		}
	}

	again, err := MkdirParents(leaf, 0o755)
	if err != nil || len(again) != 0 {
		t.Fatalf("second call created %v (err=%v)", again, err)
	}
}

func TestRemoveEmptyDirsKeepsPopulated(t *testing.T) {
	base := t.TempDir()
	created, err := MkdirParents(filepath.Join(base, "a", "b"), 0o755)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "a", "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	RemoveEmptyDirs(created)
	if _, err := os.Stat(filepath.Join(base, "a", "b")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("empty dir should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "a", "keep.txt")); err != nil {
		t.Fatalf("populated dir removed: %v", err)
	}
}
