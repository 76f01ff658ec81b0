// Package log provides the logger used across the module, backed by logrus.
package log

import (
	"io"
	"os"
	"sync"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger
)

// GetLogger returns the global logger. Before Init it logs at info level
// to stderr.
func GetLogger() Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = NewWithWriter(Config{}, os.Stderr)
	}
	return logger
}

// Init configures the global logger: stdout plus the optional file appender.
func Init(cfg Config) {
	w := NewMultiWriter().Add(os.Stdout)
	if cfg.File.Enabled && cfg.File.Filename != "" {
		w.AddFileAppender(cfg.File)
	}

	l := NewWithWriter(cfg, w)
	mu.Lock()
	logger = l
	mu.Unlock()
}

// NewWithWriter builds a standalone logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) Logger {
	return newLogrusAdapter(cfg.withDefaults(), w)
}
