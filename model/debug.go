package model

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel orders log severities from most to least urgent.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the level name as it appears in log output.
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// DebugLogger writes leveled diagnostic output to stderr. It stays silent
// unless enabled, so the republished feeds on stdout are never polluted
// when the binary runs as a stdio MCP server.
//
// Environment configuration:
//
//	FEEDFUSER_DEBUG=true|1      enable output
//	FEEDFUSER_LOG_LEVEL=error|warn|info|debug
//	FEEDFUSER_JSON_LOGS=true|1  one JSON object per line instead of text
type DebugLogger struct {
	level    LogLevel
	sink     *log.Logger
	enabled  bool
	jsonMode bool
}

var defaultLogger *DebugLogger

func init() {
	defaultLogger = NewDebugLogger()
}

// NewDebugLogger creates a logger configured from the environment.
func NewDebugLogger() *DebugLogger {
	d := &DebugLogger{
		level: LogLevelInfo,
		sink:  log.New(os.Stderr, "", 0),
	}

	if v := os.Getenv("FEEDFUSER_DEBUG"); v != "" {
		d.enabled = isTruthy(v)
	}
	if v := os.Getenv("FEEDFUSER_LOG_LEVEL"); v != "" {
		d.level = parseLogLevel(v)
	}
	if v := os.Getenv("FEEDFUSER_JSON_LOGS"); v != "" {
		d.jsonMode = isTruthy(v)
	}

	return d
}

// SetLevel sets the maximum level that will be written.
func (d *DebugLogger) SetLevel(level LogLevel) { d.level = level }

// SetEnabled turns output on or off.
func (d *DebugLogger) SetEnabled(enabled bool) { d.enabled = enabled }

// SetJSONMode switches between text and JSON output.
func (d *DebugLogger) SetJSONMode(jsonMode bool) { d.jsonMode = jsonMode }

// logRecord is one log line in either output mode.
type logRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Operation string         `json:"operation,omitempty"`
	URL       string         `json:"url,omitempty"`
	Error     string         `json:"error,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func (d *DebugLogger) emit(level LogLevel, message, component, operation, url string, err error, extra map[string]any) {
	if !d.enabled || level > d.level {
		return
	}

	rec := logRecord{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   message,
		Component: component,
		Operation: operation,
		URL:       url,
		Extra:     extra,
	}
	if err != nil {
		rec.Error = err.Error()
	}

	if d.jsonMode {
		d.writeJSON(rec)
	} else {
		d.writeText(rec)
	}
}

func (d *DebugLogger) writeJSON(rec logRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		d.sink.Printf("ERROR: failed to marshal log record: %v", err)
		return
	}
	d.sink.Println(string(data))
}

func (d *DebugLogger) writeText(rec logRecord) {
	parts := []string{
		rec.Timestamp.Format("2006-01-02T15:04:05.000Z"),
		fmt.Sprintf("[%s]", rec.Level),
		rec.Message,
	}

	if rec.Component != "" {
		parts = append(parts, "component="+rec.Component)
	}
	if rec.Operation != "" {
		parts = append(parts, "operation="+rec.Operation)
	}
	if rec.URL != "" {
		parts = append(parts, "url="+rec.URL)
	}
	if rec.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", rec.Error))
	}

	// Extra fields in sorted order so log lines are stable.
	keys := make([]string, 0, len(rec.Extra))
	for key := range rec.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, rec.Extra[key]))
	}

	d.sink.Println(strings.Join(parts, " "))
}

// Debug logs a debug-level message.
func (d *DebugLogger) Debug(message string) {
	d.emit(LogLevelDebug, message, "", "", "", nil, nil)
}

// DebugWithContext logs a debug-level message with component, operation,
// and URL context.
func (d *DebugLogger) DebugWithContext(message, component, operation, url string, extra map[string]any) {
	d.emit(LogLevelDebug, message, component, operation, url, nil, extra)
}

// Info logs an info-level message.
func (d *DebugLogger) Info(message string) {
	d.emit(LogLevelInfo, message, "", "", "", nil, nil)
}

// Warn logs a warning with its triggering error, if any.
func (d *DebugLogger) Warn(message string, err error) {
	d.emit(LogLevelWarn, message, "", "", "", err, nil)
}

// Error logs an error-level message with its cause.
func (d *DebugLogger) Error(message string, err error) {
	d.emit(LogLevelError, message, "", "", "", err, nil)
}

// LogFeedError logs a FeedError with its full context: correlation id,
// type, suggestion, and whatever fetch or parse detail it carries.
func (d *DebugLogger) LogFeedError(feedErr *FeedError) {
	if feedErr == nil {
		return
	}

	extra := map[string]any{
		"error_id":   feedErr.ID,
		"error_type": feedErr.ErrorType,
		"suggestion": feedErr.Suggestion,
	}
	if feedErr.FeedID != "" {
		extra["feed_id"] = feedErr.FeedID
	}
	if feedErr.HTTPStatus != 0 {
		extra["http_status"] = feedErr.HTTPStatus
	}
	if len(feedErr.HTTPHeaders) > 0 {
		extra["http_headers"] = feedErr.HTTPHeaders
	}
	if feedErr.ParseContext != nil {
		extra["parse_line"] = feedErr.ParseContext.LineNumber
		extra["feed_format"] = feedErr.ParseContext.FeedFormat
	}

	d.emit(LogLevelError, feedErr.Message, feedErr.Component, feedErr.Operation, feedErr.URL, feedErr.Cause, extra)
}

// Package-level convenience functions using the default logger.

// SetDebugMode turns the default logger on or off.
func SetDebugMode(enabled bool) {
	defaultLogger.SetEnabled(enabled)
}

// DebugLog logs a debug message.
func DebugLog(message string) {
	defaultLogger.Debug(message)
}

// DebugLogWithContext logs a debug message with context.
func DebugLogWithContext(message, component, operation, url string, extra map[string]any) {
	defaultLogger.DebugWithContext(message, component, operation, url, extra)
}

// InfoLog logs an info message.
func InfoLog(message string) {
	defaultLogger.Info(message)
}

// WarnLog logs a warning message.
func WarnLog(message string, err error) {
	defaultLogger.Warn(message, err)
}

// ErrorLog logs an error message.
func ErrorLog(message string, err error) {
	defaultLogger.Error(message, err)
}

// LogFeedError logs a FeedError using the default logger.
func LogFeedError(feedErr *FeedError) {
	defaultLogger.LogFeedError(feedErr)
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "INFO":
		return LogLevelInfo
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}
