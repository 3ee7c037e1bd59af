// Package logging provides category-based file logging for deskpilot plus
// the structured run-event stream the pipeline emits. Logs are written
// under the configured directory, one file per category per day; when no
// directory is configured every logger is a silent no-op.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and wiring
	CategoryParser     Category = "parser"     // Instruction segmentation
	CategoryPerception Category = "perception" // Screenshot, OCR, detector, captions
	CategoryResolver   Category = "resolver"   // Target resolution
	CategoryExecutor   Category = "executor"   // Step planning and primitives
	CategoryStability  Category = "stability"  // Screen stability waits
	CategoryPipeline   Category = "pipeline"   // Run orchestration + events
	CategoryHistory    Category = "history"    // Command history persistence
	CategoryScreenshot Category = "screenshot" // Screenshot store and retention
	CategoryAPI        Category = "api"        // LLM API calls
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	logLevel  = LevelInfo
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Initialize sets the log directory and minimum level. Call once at
// startup; an empty dir keeps logging disabled.
func Initialize(dir, level string) error {
	switch level {
	case "debug":
		logLevel = LevelDebug
	case "", "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}
	logsDir = dir
	Get(CategoryBoot).Info("logging initialized: dir=%s level=%s", dir, level)
	return nil
}

// Get returns (or creates) a logger for the given category. Without an
// initialized directory it returns a no-op logger.
func Get(category Category) *Logger {
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}
	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] "+format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] "+format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] "+format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] "+format, args...)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
	logsDir = ""
}

// =============================================================================
// STRUCTURED RUN EVENTS
// =============================================================================

// EventWriter emits one JSON object per pipeline event, each carrying
// event, run_id and ts plus the caller's fields.
type EventWriter struct {
	RunID string
}

// Emit writes the event to the pipeline category log.
func (w *EventWriter) Emit(event string, fields map[string]any) {
	l := Get(CategoryPipeline)
	if l.logger == nil {
		return
	}
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event
	entry["run_id"] = w.RunID
	entry["ts"] = time.Now().UnixMilli()
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[EVENT] %s | %v", event, fields)
		return
	}
	l.logger.Printf("%s", data)
}
