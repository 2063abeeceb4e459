package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modelsort/internal/config"
)

// LogFileName is the file written below paths.log_dir.
const LogFileName = "modelsort.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format applies to Stream: "console" (default) or "json".
	Format string
	// Stream receives human-facing output; nil means stderr.
	Stream io.Writer
	// File, when set, additionally receives every record as a JSON line.
	File string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := levelVar.Level() <= slog.LevelDebug

	stream := opts.Stream
	if stream == nil {
		stream = os.Stderr
	}

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		primary = newConsoleHandler(stream, levelVar, addSource)
	case "json":
		primary = newJSONHandler(stream, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if strings.TrimSpace(opts.File) == "" {
		return slog.New(primary), nil
	}
	file, err := openLogFile(opts.File)
	if err != nil {
		return nil, err
	}
	return slog.New(newFanoutHandler(primary, newJSONHandler(file, levelVar, true))), nil
}

// NewFromConfig creates the CLI logger. Lines go to stderr so stdout stays
// reserved for command output; with paths.log_dir set they are also appended
// to <log_dir>/modelsort.log as JSON.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.File = filepath.Join(dir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonAttr,
	})
}

// jsonAttr renames time to ts (RFC3339 UTC), lowercases the level and
// shortens source to file:line.
func jsonAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
		}
		attr.Key = "ts"
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}
