package services

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
)

// WithRunID annotates context with the organizer run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, runIDKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return valueOf(ctx, stageKey)
}

// Empty values leave ctx untouched so an outer annotation survives.
func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key ctxKey) (string, bool) {
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}
