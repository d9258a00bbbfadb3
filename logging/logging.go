// package logging provides the shared logger used across the graphics core.
// It wraps a single configurable logrus.Logger so that library consumers can
// swap in their own instance without threading a logger through every call.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log *logrus.Logger
)

// Init configures the package logger with the given level string ("debug",
// "info", "warn", "error"). Unknown levels fall back to info.
//
// Parameters:
//   - level: the logrus level name to parse
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(level)
}

// Set replaces the package logger with a caller-owned instance.
// Passing nil resets to the default logger.
//
// Parameters:
//   - l: the logger to install, or nil to reset
func Set(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// Get returns the package logger, creating the default one on first use.
//
// Returns:
//   - *logrus.Logger: the active logger instance
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = newLogger("info")
	}
	return log
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	Get().Debugf(format, args...)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	Get().Infof(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	Get().Warnf(format, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) {
	Get().Errorf(format, args...)
}
