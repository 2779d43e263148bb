package migrate

import "context"

// Logger is the logging interface accepted by engine components.
// Arguments after the message are alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// NopLogger is a Logger that discards everything.
type NopLogger struct{}

// Compile-time check that NopLogger implements Logger.
var _ Logger = NopLogger{}

// Debug implements Logger.
func (NopLogger) Debug(ctx context.Context, msg string, args ...any) {}

// Info implements Logger.
func (NopLogger) Info(ctx context.Context, msg string, args ...any) {}

// Error implements Logger.
func (NopLogger) Error(ctx context.Context, msg string, args ...any) {}
