package main

import (
	"os"
	"path/filepath"
	"testing"

	"modelsort/internal/testsupport"
)

func TestWorkspaceListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"workspace", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace list: %v", err)
	}
	requireContains(t, out, "No leftover workspaces found")

	old := env.tempBase + "20200101000000-0badf00d"
	recent := env.tempBase + "20991231235959-cafef00d"
	testsupport.WriteText(t, filepath.Join(old, "0001", "a", "a.obj"), "a")
	testsupport.WriteText(t, filepath.Join(recent, "0001", "b", "b.obj"), "b")
	if err := os.MkdirAll(env.tempBase+"-unrelated", 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err = runCLI(t, []string{"workspace", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace list: %v", err)
	}
	requireContains(t, out, "20200101000000-0badf00d")
	requireContains(t, out, "2 workspaces")

	out, _, err = runCLI(t, []string{"workspace", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace clean: %v", err)
	}
	requireContains(t, out, "Removed "+old)
	testsupport.AssertMissing(t, old)
	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("recent workspace removed: %v", err)
	}

	if _, _, err := runCLI(t, []string{"workspace", "clean", "--all"}, env.configPath); err != nil {
		t.Fatalf("workspace clean --all: %v", err)
	}
	testsupport.AssertMissing(t, recent)
	if _, err := os.Stat(env.tempBase + "-unrelated"); err != nil {
		t.Fatalf("unrelated directory removed: %v", err)
	}
}
