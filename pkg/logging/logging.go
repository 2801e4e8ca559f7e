package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levels = [...]struct {
	name string
	slog slog.Level
}{
	LevelDebug: {"DEBUG", slog.LevelDebug},
	LevelInfo:  {"INFO", slog.LevelInfo},
	LevelWarn:  {"WARN", slog.LevelWarn},
	LevelError: {"ERROR", slog.LevelError},
}

func (l LogLevel) valid() bool {
	return l >= LevelDebug && int(l) < len(levels)
}

// String returns the upper-case level name, or UNKNOWN.
func (l LogLevel) String() string {
	if !l.valid() {
		return "UNKNOWN"
	}
	return levels[l].name
}

// SlogLevel maps l onto slog. Unknown levels map to Info.
func (l LogLevel) SlogLevel() slog.Level {
	if !l.valid() {
		return slog.LevelInfo
	}
	return levels[l].slog
}

// ParseLevel converts a configuration value such as "debug" or "WARN" into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (expected debug, info, warn, error)", s)
	}
}

var (
	mu     sync.RWMutex
	logger *slog.Logger

	// Used until InitForCLI runs so warnings and errors still reach stderr.
	fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// InitForCLI installs a text logger writing to output at filterLevel.
// Tests may call it again to redirect output into a buffer.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	l := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: filterLevel.SlogLevel()}))

	mu.Lock()
	logger = l
	mu.Unlock()

	slog.SetDefault(l)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return fallback
	}
	return logger
}

func emit(level LogLevel, subsystem string, err error, format string, args []interface{}) {
	l := current()
	ctx := context.Background()
	if !l.Enabled(ctx, level.SlogLevel()) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(ctx, level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, format string, args ...interface{}) {
	emit(LevelDebug, subsystem, nil, format, args)
}

// Info logs an informational message.
func Info(subsystem string, format string, args ...interface{}) {
	emit(LevelInfo, subsystem, nil, format, args)
}

// Warn logs a warning message.
func Warn(subsystem string, format string, args ...interface{}) {
	emit(LevelWarn, subsystem, nil, format, args)
}

// Error logs an error message with its cause.
func Error(subsystem string, err error, format string, args ...interface{}) {
	emit(LevelError, subsystem, err, format, args)
}

// Enabled reports whether messages at level would currently be emitted.
func Enabled(level LogLevel) bool {
	return current().Enabled(context.Background(), level.SlogLevel())
}
