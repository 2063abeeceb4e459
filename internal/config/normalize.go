package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOrganize()
	if c.History.ListLimit <= 0 {
		c.History.ListLimit = defaultHistoryListLimit
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrganize() {
	c.Organize.ArchiveExtensions = normalizeExtensions(c.Organize.ArchiveExtensions)
	c.Organize.AssetExtensions = normalizeExtensions(c.Organize.AssetExtensions)

	c.Organize.Placement = strings.ToLower(strings.TrimSpace(c.Organize.Placement))
	if c.Organize.Placement == "" {
		c.Organize.Placement = defaultPlacement
	}

	if c.Organize.MaxArchiveDepth == 0 {
		c.Organize.MaxArchiveDepth = defaultMaxArchiveDepth
	}

	encoding := strings.ToLower(strings.TrimSpace(c.Organize.FilenameEncoding))
	switch encoding {
	case "":
		encoding = defaultFilenameEncoding
	case "ibm437", "cp-437":
		encoding = "cp437"
	case "shift-jis", "sjis":
		encoding = "shift_jis"
	case "eucjp", "euc_jp":
		encoding = "euc-jp"
	case "utf8":
		encoding = "utf-8"
	}
	c.Organize.FilenameEncoding = encoding
	c.Organize.IgnoreFile = strings.TrimSpace(c.Organize.IgnoreFile)
}

// normalizeExtensions lower-cases, dot-prefixes, and de-duplicates an
// extension list while preserving order.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
