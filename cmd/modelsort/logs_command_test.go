package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandPrintsTail(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	content, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	patched := strings.Replace(string(content), "[paths]\n", "[paths]\nlog_dir = \""+logDir+"\"\n", 1)
	if err := os.WriteFile(env.configPath, []byte(patched), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "modelsort.log"), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogsCommandRequiresLogDir(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected error without log_dir")
	}
}
