package hostcore

import "log/slog"

// Logger defines the interface for application logging.
// The core uses structured logging with key-value pairs so host binaries can
// plug in slog, zap, logrus or any other structured backend.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("Loading component", "path", path)
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	// Used for normal lifecycle events like component registration.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Detailed diagnostic information, typically disabled in production.
	Debug(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the Logger interface. It is the default
// logger when an application is constructed without WithLogger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps the given slog logger. A nil argument wraps
// slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Info implements Logger.
func (l *SlogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Error implements Logger.
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Warn implements Logger.
func (l *SlogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Debug implements Logger.
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
