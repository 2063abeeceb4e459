package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	tempBase   string
	stateDir   string
	target     string
	output     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		tempBase:   filepath.Join(base, "work", "tempWorkSpace"),
		stateDir:   filepath.Join(base, "state"),
		target:     filepath.Join(base, "in"),
		output:     filepath.Join(base, "out"),
	}
	if err := os.MkdirAll(env.target, 0o755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}
	writeTestConfig(t, env.configPath, env.tempBase, env.stateDir, "")
	return env
}

func writeTestConfig(t *testing.T, path, tempBase, stateDir, extra string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ntemp_dir = %q\nstate_dir = %q\n\n[logging]\nlevel = \"error\"\n%s",
		tempBase,
		stateDir,
		extra,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
