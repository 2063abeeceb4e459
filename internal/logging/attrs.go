package logging

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Attr is the attribute type accepted by every helper in this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error records err under the "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Size groups a byte count with its human-readable form so console lines stay
// legible while JSON keeps the exact number: size.bytes and size.human.
func Size(key string, n int64) Attr {
	return slog.Group(key,
		slog.Int64("bytes", n),
		slog.String("human", FormatBytes(n)),
	)
}

// FormatBytes renders n in IEC units (KiB, MiB, ...).
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with the component attribute. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}
