package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

// loggerKey is the context key for the logger.
const loggerKey contextKey = iota

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// Ctx returns a logger from the context or the default logger.
// This is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// withField returns a context whose logger carries an extra string field.
func withField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithPass tags the context logger with the reconciliation pass ID.
func WithPass(ctx context.Context, passID string) context.Context {
	return withField(ctx, "pass_id", passID)
}

// WithUpstream tags the context logger with the upstream name.
func WithUpstream(ctx context.Context, upstream string) context.Context {
	return withField(ctx, "upstream", upstream)
}

// WithItem tags the context logger with the source item external ID.
func WithItem(ctx context.Context, externalID string) context.Context {
	return withField(ctx, "external_id", externalID)
}
