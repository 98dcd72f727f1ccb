// Package logger declares the logging interface used across the module so
// that core packages never import zerolog directly.
package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StructuredLogger can log structured debug information. It is implemented
// by infra/logger's ZerologLogger and by test fakes.
type StructuredLogger interface {
	Debugw(msg string, fields map[string]any)
}
