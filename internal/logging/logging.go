// Package logging holds the slog conventions shared by sessionguard packages.
package logging

import (
	"log/slog"
)

const (
	ComponentKey = "component"
	ErrorKey     = "error"
)

// Child returns logger with the component name attached.
func Child(logger *slog.Logger, component string) *slog.Logger {
	return DefaultIfNil(logger).With(
		slog.String(ComponentKey, component),
	)
}

// Error renders err as a string attribute. A nil error renders as "".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(ErrorKey, "")
	}
	return slog.String(ErrorKey, err.Error())
}

// DefaultIfNil returns slog.Default() when logger is nil.
func DefaultIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
