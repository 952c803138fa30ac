// Package logging provides the training log manager.
package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry represents a log entry.
type LogEntry struct {
	Level     Level                  `json:"level"`
	Message   string                 `json:"message"`
	Logger    string                 `json:"logger,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// String renders the entry as a single line; data keys are sorted.
func (e LogEntry) String() string {
	var b strings.Builder
	b.WriteString(time.UnixMilli(e.Timestamp).Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(string(e.Level)))
	if e.Logger != "" {
		b.WriteString(" [")
		b.WriteString(e.Logger)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	return b.String()
}

// LogHandler is a callback for log messages.
type LogHandler func(entry LogEntry)

// LogManager keeps a bounded buffer of entries and fans them out to handlers.
// Handlers run synchronously so training output stays in step order.
type LogManager struct {
	mu         sync.RWMutex
	level      Level
	handlers   []LogHandler
	entries    []LogEntry
	maxEntries int
}

func normalizeLogLevel(level string) Level {
	return Level(strings.ToLower(strings.TrimSpace(level)))
}

func safeInvokeLogHandler(handler LogHandler, entry LogEntry) {
	if handler == nil {
		return
	}

	defer func() {
		_ = recover()
	}()
	handler(entry)
}

// NewLogManager creates a new LogManager.
func NewLogManager(level Level, maxEntries int) *LogManager {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &LogManager{
		level:      level,
		handlers:   make([]LogHandler, 0),
		entries:    make([]LogEntry, 0),
		maxEntries: maxEntries,
	}
}

// NewLogManagerWithDefaults creates a LogManager at info level.
func NewLogManagerWithDefaults() *LogManager {
	return NewLogManager(LevelInfo, 1000)
}

// SetLevel sets the log level.
func (lm *LogManager) SetLevel(level string) error {
	if lm == nil {
		return fmt.Errorf("log manager is required")
	}

	logLevel := normalizeLogLevel(level)
	switch logLevel {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	lm.mu.Lock()
	lm.level = logLevel
	lm.mu.Unlock()

	return nil
}

// GetLevel returns the current log level.
func (lm *LogManager) GetLevel() Level {
	if lm == nil {
		return LevelInfo
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.level
}

// AddHandler adds a log handler.
func (lm *LogManager) AddHandler(handler LogHandler) {
	if lm == nil || handler == nil {
		return
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.handlers = append(lm.handlers, handler)
}

// Log logs a message at the specified level.
func (lm *LogManager) Log(level Level, message string, data map[string]interface{}) {
	lm.LogWithLogger(level, "", message, data)
}

// LogWithLogger logs a message with a specific logger name.
func (lm *LogManager) LogWithLogger(level Level, logger, message string, data map[string]interface{}) {
	if lm == nil {
		return
	}

	if !lm.shouldLog(level) {
		return
	}

	entry := LogEntry{
		Level:     level,
		Message:   message,
		Logger:    logger,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	lm.mu.Lock()
	lm.entries = append(lm.entries, entry)
	if len(lm.entries) > lm.maxEntries {
		lm.entries = lm.entries[1:]
	}
	handlers := make([]LogHandler, len(lm.handlers))
	copy(handlers, lm.handlers)
	lm.mu.Unlock()

	for _, handler := range handlers {
		safeInvokeLogHandler(handler, entry)
	}
}

// Named returns a Logger that tags every entry with name.
func (lm *LogManager) Named(name string) *Logger {
	return &Logger{manager: lm, name: name}
}

func (lm *LogManager) shouldLog(level Level) bool {
	if lm == nil {
		return false
	}

	lm.mu.RLock()
	currentLevel := lm.level
	lm.mu.RUnlock()

	return levelPriority(level) >= levelPriority(currentLevel)
}

func levelPriority(level Level) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// GetEntries returns up to limit recent log entries, oldest first.
func (lm *LogManager) GetEntries(limit int) []LogEntry {
	if lm == nil {
		return []LogEntry{}
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()

	if limit <= 0 || limit > len(lm.entries) {
		limit = len(lm.entries)
	}

	result := make([]LogEntry, limit)
	copy(result, lm.entries[len(lm.entries)-limit:])
	return result
}

// GetEntriesByLevel returns log entries filtered by level.
func (lm *LogManager) GetEntriesByLevel(level Level, limit int) []LogEntry {
	if lm == nil {
		return []LogEntry{}
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()

	result := make([]LogEntry, 0)
	for i := len(lm.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if lm.entries[i].Level == level {
			result = append(result, lm.entries[i])
		}
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return result
}

// Clear clears all log entries.
func (lm *LogManager) Clear() {
	if lm == nil {
		return
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.entries = make([]LogEntry, 0)
}

// Count returns the number of log entries.
func (lm *LogManager) Count() int {
	if lm == nil {
		return 0
	}

	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.entries)
}

// Logger is a named view onto a LogManager.
type Logger struct {
	manager *LogManager
	name    string
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, data map[string]interface{}) {
	l.log(LevelDebug, message, data)
}

// Info logs an info message.
func (l *Logger) Info(message string, data map[string]interface{}) {
	l.log(LevelInfo, message, data)
}

// Warning logs a warning message.
func (l *Logger) Warning(message string, data map[string]interface{}) {
	l.log(LevelWarning, message, data)
}

// Error logs an error message.
func (l *Logger) Error(message string, data map[string]interface{}) {
	l.log(LevelError, message, data)
}

func (l *Logger) log(level Level, message string, data map[string]interface{}) {
	if l == nil {
		return
	}
	l.manager.LogWithLogger(level, l.name, message, data)
}

func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
