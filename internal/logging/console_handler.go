package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one human-readable line per record:
//
//	2006-01-02 15:04:05 INFO archive: extracted archive path=/tmp/x entries=3
//
// The component attribute moves into the line prefix. Groups become dotted keys.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool
	component string
	prefix    string // open groups, each followed by '.'
	preset    []byte // handler attrs, rendered once in WithAttrs
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(p []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	component := h.component
	var fields []byte
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a, &component)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := make([]byte, 0, 96+len(h.preset)+len(fields))
	line = ts.In(time.Local).AppendFormat(line, timestampLayout)
	line = append(line, ' ')
	line = append(line, levelLabel(r.Level)...)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line = append(line, msg...)
	if h.addSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		line = fmt.Appendf(line, " [%s:%d]", filepath.Base(frame.File), frame.Line)
	}
	line = append(line, h.preset...)
	line = append(line, fields...)
	line = append(line, '\n')
	return h.out.write(line)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.preset = slices.Clone(h.preset)
	for _, a := range attrs {
		next.preset = appendAttr(next.preset, h.prefix, a, &next.component)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendAttr renders a as " key=value". A top-level component attr is
// captured into component (first one wins) instead of being rendered.
func appendAttr(dst []byte, prefix string, a slog.Attr, component *string) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = appendAttr(dst, inner, ga, component)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	if prefix == "" && a.Key == FieldComponent {
		if *component == "" {
			*component = valueText(a.Value)
		}
		return dst
	}
	dst = append(dst, ' ')
	dst = append(dst, prefix...)
	dst = append(dst, a.Key...)
	dst = append(dst, '=')
	return append(dst, renderValue(a.Value)...)
}
