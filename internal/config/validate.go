package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrganize(); err != nil {
		return err
	}
	if c.Workspace.StaleAfterHours <= 0 {
		return errors.New("workspace.stale_after_hours must be positive")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOrganize() error {
	if len(c.Organize.ArchiveExtensions) == 0 {
		return errors.New("organize.archive_extensions must list at least one extension")
	}
	if len(c.Organize.AssetExtensions) == 0 {
		return errors.New("organize.asset_extensions must list at least one extension")
	}
	archives := make(map[string]struct{}, len(c.Organize.ArchiveExtensions))
	for _, ext := range c.Organize.ArchiveExtensions {
		archives[ext] = struct{}{}
	}
	for _, ext := range c.Organize.AssetExtensions {
		if _, ok := archives[ext]; ok {
			return fmt.Errorf("organize: extension %q cannot be both an archive and an asset", ext)
		}
	}
	switch c.Organize.Placement {
	case PlacementCopy, PlacementMove:
	default:
		return fmt.Errorf("organize.placement must be %q or %q, got %q", PlacementCopy, PlacementMove, c.Organize.Placement)
	}
	if c.Organize.MaxArchiveDepth < 1 {
		return errors.New("organize.max_archive_depth must be at least 1")
	}
	switch c.Organize.FilenameEncoding {
	case "cp437", "shift_jis", "euc-jp", "utf-8":
	default:
		return fmt.Errorf("organize.filename_encoding: unsupported value %q (want cp437, shift_jis, euc-jp or utf-8)", c.Organize.FilenameEncoding)
	}
	if strings.ContainsAny(c.Organize.IgnoreFile, `/\`) {
		return fmt.Errorf("organize.ignore_file must be a file name in the source root, got %q", c.Organize.IgnoreFile)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
