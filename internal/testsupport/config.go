package testsupport

import (
	"path/filepath"
	"testing"

	"modelsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempDir = filepath.Join(base, "work", "tempWorkSpace")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPlacement sets the placement mode for extracted directories.
func WithPlacement(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.Placement = mode
	}
}

// WithMaxArchiveDepth overrides the nesting limit.
func WithMaxArchiveDepth(depth int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.MaxArchiveDepth = depth
	}
}

// WithoutHistory disables the run history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns an option that reports the per-test base directory to dst.
func BaseDir(dst *string) ConfigOption {
	return func(b *configBuilder) {
		*dst = b.baseDir
	}
}
