package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Options controls the optional rotating file output.
type Options struct {
	Level      string
	File       string // empty disables the file core
	MaxSizeMB  int
	MaxBackups int
}

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton console logger configured with the provided level.
// The first call (to Get or Configure) initializes the logger; later calls
// return the already initialized instance.
func Get(level string) *Logger {
	return Configure(Options{Level: level})
}

// Configure initializes the singleton with a console core and, when
// opts.File is set, a JSON core writing to a rotated file.
func Configure(opts Options) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(opts)
	})
	return globalLogger
}
