package visualping

import (
	"io"
	"log/slog"
	"os"
)

// SimpleLogger writes key/value records as text through log/slog.
type SimpleLogger struct {
	logger *slog.Logger
}

// NewSimpleLogger returns a logger writing debug-level text to stderr.
func NewSimpleLogger() *SimpleLogger {
	return NewSimpleLoggerTo(os.Stderr)
}

// NewSimpleLoggerTo returns a logger writing debug-level text to w.
func NewSimpleLoggerTo(w io.Writer) *SimpleLogger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &SimpleLogger{logger: slog.New(handler).With("component", "visualping")}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *SimpleLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *SimpleLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *SimpleLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

// logEnabled reports whether debug output of the given kind should be written.
func (c *Client) logEnabled(kind func(*DebugConfig) bool) bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil && (kind == nil || kind(c.debug))
}

func logRequests(d *DebugConfig) bool { return d.LogRequests }
func logRetries(d *DebugConfig) bool  { return d.LogRetries }
func logAuth(d *DebugConfig) bool     { return d.LogAuth }

// warn is written whenever a logger is configured, debug or not.
func (c *Client) warn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}
