package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBootstrap     = errors.New("bootstrap error")
	ErrExtraction    = errors.New("extraction error")
	ErrPlacement     = errors.New("placement error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrBusy          = errors.New("another run is in progress")
	ErrAborted       = errors.New("run aborted")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a pipeline error to the process exit status the CLI reports.
// Operator mistakes (bad config, invalid paths) exit with 2, a held run lock
// with 3, and every other failure with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrBusy):
		return 3
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	var parts []string
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
