// Package logging provides the dispatcher's structured logger, a thin
// wrapper over go-kit/log: logger.Error("message", "key", value, ...).
package logging

import (
	"os"
	"sync"

	kitlog "github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"
)

// Logger is a leveled, module-scoped logger.
type Logger struct {
	module string
	base   kitlog.Logger
}

var (
	root     kitlog.Logger
	rootOnce sync.Once
)

func getRoot() kitlog.Logger {
	rootOnce.Do(func() {
		root = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
		root = kitlog.With(root, "ts", kitlog.DefaultTimestampUTC)
	})
	return root
}

// GetLogger returns a logger scoped to module, e.g. "runtime/dispatcher".
func GetLogger(module string) *Logger {
	return &Logger{
		module: module,
		base:   kitlog.With(getRoot(), "module", module),
	}
}

// With returns a derived logger with additional static key-value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{module: l.module, base: kitlog.With(l.base, keyvals...)}
}

func (l *Logger) log(leveled kitlog.Logger, msg string, keyvals ...interface{}) {
	args := append([]interface{}{"msg", msg}, keyvals...)
	_ = leveled.Log(args...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(kitlevel.Debug(l.base), msg, keyvals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(kitlevel.Info(l.base), msg, keyvals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(kitlevel.Warn(l.base), msg, keyvals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(kitlevel.Error(l.base), msg, keyvals...)
}
