package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyFileName contextKey = "file_name"
)

// WithRunID adds the run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithFileName adds the input file currently being processed to the context
func WithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyFileName, name)
}

// FileNameFromContext extracts the input file name from context
func FileNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyFileName).(string); ok {
		return name
	}
	return ""
}

// LogAttrs returns the run ID and file name stored in ctx as slog key/value pairs,
// skipping the ones that are not set.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if runID := RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if name := FileNameFromContext(ctx); name != "" {
		attrs = append(attrs, "file", name)
	}
	return attrs
}
