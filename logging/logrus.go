// Package logging provides a logrus-backed implementation of the
// engine's Logger interface.
package logging

import (
	"context"
	"fmt"

	"github.com/schemashift/migrate"
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus logger to migrate.Logger, turning the
// key/value argument pairs into structured fields.
type logrusLogger struct {
	logger *logrus.Logger
}

// Compile-time check that logrusLogger implements migrate.Logger.
var _ migrate.Logger = (*logrusLogger)(nil)

// New wraps a logrus logger as a migrate.Logger.
func New(logger *logrus.Logger) migrate.Logger {
	return &logrusLogger{logger: logger}
}

// NewDefault returns a migrate.Logger over a logrus logger with default
// settings at Info level.
func NewDefault() migrate.Logger {
	return New(logrus.StandardLogger())
}

// Debug implements migrate.Logger.
func (l *logrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.WithFields(fields(args)).Debug(msg)
}

// Info implements migrate.Logger.
func (l *logrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.WithFields(fields(args)).Info(msg)
}

// Error implements migrate.Logger.
func (l *logrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.WithFields(fields(args)).Error(msg)
}

// fields converts alternating key/value pairs into logrus fields.
// A trailing key without a value is kept with a nil value.
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		if i+1 < len(args) {
			f[key] = args[i+1]
		} else {
			f[key] = nil
		}
	}
	return f
}
