package log

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

// runID tags every log line from this process with a short id, so
// lines from concurrent vessel workers (internal/aggregate runs one
// goroutine per vessel) can be told apart in a shared log stream.
var runID string

// Initialize sets up the global structured logger and mints a fresh
// run id.
func Initialize() {
	logLevel := getLogLevel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	}))

	runID = newRunID()
	Logger = logger.With("run_id", runID)
	slog.SetDefault(Logger)
}

func newRunID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}

// getLogLevel returns the appropriate log level from environment
func getLogLevel() slog.Level {
	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an informational message
func Info(msg string, args ...any) {
	if Logger == nil {
		Initialize()
	}
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if Logger == nil {
		Initialize()
	}
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	if Logger == nil {
		Initialize()
	}
	Logger.Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if Logger == nil {
		Initialize()
	}
	Logger.Debug(msg, args...)
}

// WithContext returns a logger with additional context fields, on top
// of whatever Initialize already attached (the run id).
func WithContext(args ...any) *slog.Logger {
	if Logger == nil {
		Initialize()
	}
	return Logger.With(args...)
}

// ForVessel returns a logger scoped to one vessel's enumeration run,
// for the per-goroutine vessel workers in internal/aggregate to log
// through without repeating the vessel key on every call.
func ForVessel(character, vesselKey string) *slog.Logger {
	return WithContext("character", character, "vessel", vesselKey)
}
