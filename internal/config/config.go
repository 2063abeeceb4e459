package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"modelsort/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// TempDir is the workspace base. Each run appends its RunID to it, so the
	// value acts as a prefix rather than a parent directory.
	TempDir  string `toml:"temp_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Organize contains configuration for discovery, extraction and placement.
type Organize struct {
	ArchiveExtensions []string `toml:"archive_extensions"`
	AssetExtensions   []string `toml:"asset_extensions"`
	Placement         string   `toml:"placement"`
	MaxArchiveDepth   int      `toml:"max_archive_depth"`
	FilenameEncoding  string   `toml:"filename_encoding"`
	// IgnoreFile names a gitignore-style file in the source root whose
	// patterns exclude paths from the scan. Empty disables it.
	IgnoreFile string `toml:"ignore_file"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled   bool `toml:"enabled"`
	ListLimit int  `toml:"list_limit"`
}

// Workspace contains configuration for leftover workspace maintenance.
type Workspace struct {
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for modelsort.
//
// Configuration sections by subsystem:
//   - Paths: workspace base, state directory (lock + history), optional log dir
//   - Organize: extension sets, placement mode, nesting limit, name encoding
//   - History: run history database toggle and listing size
//   - Workspace: age threshold for `workspace clean`
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Organize  Organize  `toml:"organize"`
	History   History   `toml:"history"`
	Workspace Workspace `toml:"workspace"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/modelsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. An explicit path that does not exist yields the
// defaults; the boolean result reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// decodeFile strictly decodes TOML into cfg. Syntax errors and unknown keys
// are reported with their position in the file.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err = decoder.Decode(cfg)

	var syntaxErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &syntaxErr):
		row, col := syntaxErr.Position()
		return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
	case errors.As(err, &strictErr):
		return fmt.Errorf("parse config %s: unknown keys\n%s", path, strictErr.String())
	default:
		return fmt.Errorf("parse config %s: %w", path, err)
	}
}

// resolveConfigPath picks the explicit path when given. Otherwise the first
// existing file among the user config and ./modelsort.toml wins, falling back
// to the (absent) user config location.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("modelsort.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the state directory (and log directory when set).
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "modelsort.lock")
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// MoveExtracted reports whether extracted asset directories are moved rather
// than copied into the output tree.
func (c *Config) MoveExtracted() bool {
	return c.Organize.Placement == PlacementMove
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(pathValue, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, rest)
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath resolves ~ and makes the path absolute and clean.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
// The write is atomic so a crash never leaves a truncated config behind.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.AtomicWriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
