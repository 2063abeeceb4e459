package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"modelsort/internal/logging"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = [...]struct {
	label string
	color text.Color
}{
	statusInfo:  {"INFO", text.FgBlue},
	statusOK:    {"OK", text.FgGreen},
	statusWarn:  {"WARN", text.FgYellow},
	statusError: {"ERROR", text.FgRed},
}

const statusLabelWidth = 24

// renderStatusLine formats "<label>:   [KIND] message" with the label padded
// so that consecutive lines align.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	line := fmt.Sprintf("%-*s [%s]", statusLabelWidth, label+":", style.label)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return style.color.Sprint(line)
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatBytes(n int64) string {
	return logging.FormatBytes(n)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
