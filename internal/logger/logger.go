// Package logger provides the global zerolog logger for testcontrol.
// Console output goes through a ConsoleWriter; file output (optional) is
// rotated by lumberjack. Test runners attach suite/class/method context so
// every event carries the position in the run it was emitted from.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger

	// fileWriter is the file output for logging (with rotation)
	fileWriter *lumberjack.Logger

	// logContext holds run position context for log entries (optional, may be empty)
	logContext   logContextData
	logContextMu sync.RWMutex

	// handlers maps registered handler names to writer factories.
	// Control.LogHandler selects one of these by name at runner construction.
	handlers   = map[string]func() io.Writer{}
	handlersMu sync.RWMutex

	// attached are extra writers added via AttachHandler, fanned into every event.
	attached   []io.Writer
	attachedMu sync.RWMutex
)

// logContextData holds optional run position context for log entries.
type logContextData struct {
	RunID  string
	Suite  string
	Class  string
	Method string
}

// SetContext sets run position context for all subsequent log entries.
// Pass empty strings to clear fields. Thread-safe.
func SetContext(runID, suite, class, method string) {
	logContextMu.Lock()
	defer logContextMu.Unlock()
	logContext = logContextData{
		RunID:  runID,
		Suite:  suite,
		Class:  class,
		Method: method,
	}
}

// SetMethod updates only the method field of the log context.
func SetMethod(method string) {
	logContextMu.Lock()
	defer logContextMu.Unlock()
	logContext.Method = method
}

// ClearContext clears the run position context.
func ClearContext() {
	SetContext("", "", "", "")
}

// getContext returns current context (thread-safe read).
func getContext() logContextData {
	logContextMu.RLock()
	defer logContextMu.RUnlock()
	return logContext
}

// addContext adds run position fields to an event if set.
func addContext(event *zerolog.Event) *zerolog.Event {
	ctx := getContext()
	if ctx.RunID != "" {
		event = event.Str("run_id", ctx.RunID)
	}
	if ctx.Suite != "" {
		event = event.Str("suite", ctx.Suite)
	}
	if ctx.Class != "" {
		event = event.Str("class", ctx.Class)
	}
	if ctx.Method != "" {
		event = event.Str("method", ctx.Method)
	}
	return event
}

// LoggingConfig holds configuration for file-based logging.
// This matches internal/config.LoggingConfig but is duplicated here
// to avoid circular imports.
type LoggingConfig struct {
	FileEnabled *bool
	MaxSizeMB   int
	MaxAgeDays  int
	MaxBackups  int
}

// IsFileEnabled returns whether file logging is enabled.
// Defaults to true if not explicitly set.
func (c *LoggingConfig) IsFileEnabled() bool {
	if c.FileEnabled == nil {
		return true
	}
	return *c.FileEnabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *LoggingConfig) GetMaxSizeMB() int {
	if c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *LoggingConfig) GetMaxAgeDays() int {
	if c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *LoggingConfig) GetMaxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// Init initializes the global logger with console-only output.
// Use InitWithFile for file logging.
func Init(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	Log = zerolog.New(baseWriter()).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// InitWithFile initializes the logger with optional file output.
// If logsDir is empty or cfg indicates file logging is disabled,
// this behaves like Init (console-only).
func InitWithFile(debug bool, logsDir string, cfg *LoggingConfig) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if logsDir == "" || cfg == nil || !cfg.IsFileEnabled() {
		Log = zerolog.New(baseWriter()).
			Level(level).
			With().
			Timestamp().
			Logger()
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, "testcontrol.log"),
		MaxSize:    cfg.GetMaxSizeMB(),
		MaxAge:     cfg.GetMaxAgeDays(),
		MaxBackups: cfg.GetMaxBackups(),
		LocalTime:  true,
		Compress:   false,
	}

	Log = zerolog.New(io.MultiWriter(baseWriter(), fileWriter)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// baseWriter builds the console writer plus any attached handler writers.
func baseWriter() io.Writer {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}

	attachedMu.RLock()
	defer attachedMu.RUnlock()

	if len(attached) == 0 {
		return console
	}
	writers := make([]io.Writer, 0, len(attached)+1)
	writers = append(writers, console)
	writers = append(writers, attached...)
	return io.MultiWriter(writers...)
}

// RegisterHandler registers a named log handler factory. A Control naming
// this handler causes the runner to attach it for the duration of the run.
func RegisterHandler(name string, factory func() io.Writer) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[name] = factory
}

// AttachHandler attaches the named handler's writer to the global logger.
// Unknown names return an error. Attaching the same name twice attaches two
// writers; callers dedupe if that matters to them.
func AttachHandler(name string) error {
	handlersMu.RLock()
	factory, ok := handlers[name]
	handlersMu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown log handler %q", name)
	}

	attachedMu.Lock()
	attached = append(attached, factory())
	attachedMu.Unlock()

	rebuild()
	return nil
}

// HandlerNames returns the registered handler names, for diagnostics.
func HandlerNames() []string {
	handlersMu.RLock()
	defer handlersMu.RUnlock()

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	return names
}

// rebuild recreates the global logger with the current writer set, keeping
// level and file output intact.
func rebuild() {
	level := Log.GetLevel()
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := baseWriter()
	if fileWriter != nil {
		out = io.MultiWriter(out, fileWriter)
	}

	Log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// CloseFileWriter closes the file writer if it exists.
// Call this on program shutdown for clean log file closure.
func CloseFileWriter() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil // Prevent double-close and writes to closed file
		return err
	}
	return nil
}

// GetLogFilePath returns the path to the current log file, or empty string if file logging is disabled.
func GetLogFilePath() string {
	if fileWriter != nil {
		return fileWriter.Filename
	}
	return ""
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return addContext(Log.Debug())
}

// Info logs an info message
func Info() *zerolog.Event {
	return addContext(Log.Info())
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return addContext(Log.Warn())
}

// Error logs an error message
func Error() *zerolog.Event {
	return addContext(Log.Error())
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return addContext(Log.Fatal())
}
