// Package logging provides config-driven categorized logging for patientdesk.
// The interactive UI owns the terminal, so logs go to .patients/logs/ under the
// workspace. Logging is controlled by logging.debug_mode in the config file:
// when false every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config, shutdown
	CategoryLoader Category = "loader" // Dataset providers
	CategoryStore  Category = "store"  // Record store mutations
	CategoryEdit   Category = "edit"   // Staged edits, commit, rollback
	CategoryWatch  Category = "watch"  // Dataset file watcher
	CategoryUI     Category = "ui"     // Page events
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
	SessionID  string
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    *zap.Logger
	opts    Options
	logFile *os.File
	loggers = make(map[Category]*Logger)
)

// Initialize sets up file logging under <workspace>/.patients/logs.
// With debug mode off it is a silent no-op.
func Initialize(workspace string, o Options) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	CloseAll()

	mu.Lock()
	opts = o
	mu.Unlock()

	if !o.DebugMode {
		return nil
	}

	logsDir := filepath.Join(workspace, ".patients", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_patients.log", date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(f), parseLevel(o.Level))

	l := zap.New(core)
	if o.SessionID != "" {
		l = l.With(zap.String("session", o.SessionID))
	}

	mu.Lock()
	base = l
	logFile = f
	mu.Unlock()

	if err := InitAudit(logsDir, o.SessionID); err != nil {
		return err
	}

	boot := Get(CategoryBoot)
	boot.Info("=== patientdesk logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Log file: %s", path)
	return nil
}

// SetBase installs a zap logger directly, bypassing the file setup.
// Every category is enabled. Used by tests and by callers that already
// own a zap logger.
func SetBase(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = Options{DebugMode: true}
	loggers = make(map[Category]*Logger)
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()

	if !opts.DebugMode || base == nil {
		return false
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.With(zap.String("category", string(category))).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a logger carrying extra key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// CloseAll flushes and closes the log and audit files and drops cached loggers.
func CloseAll() {
	CloseAudit()

	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	base = nil
	opts = Options{}
	loggers = make(map[Category]*Logger)
}

// Convenience functions for common categories

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }
func Loader(format string, args ...interface{})    { Get(CategoryLoader).Info(format, args...) }
func LoaderError(format string, args ...interface{}) {
	Get(CategoryLoader).Error(format, args...)
}
func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func Edit(format string, args ...interface{})       { Get(CategoryEdit).Info(format, args...) }
func EditDebug(format string, args ...interface{})  { Get(CategoryEdit).Debug(format, args...) }
func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }
func UIDebug(format string, args ...interface{})    { Get(CategoryUI).Debug(format, args...) }

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %v", t.operation, elapsed)
	return elapsed
}
