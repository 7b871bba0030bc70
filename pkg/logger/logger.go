// Package logger provides structured JSON logging with context support
// for the TuneLease platform services.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	// DebugLevel for debug messages.
	DebugLevel Level = iota
	// InfoLevel for informational messages.
	InfoLevel
	// WarnLevel for warning messages.
	WarnLevel
	// ErrorLevel for error messages.
	ErrorLevel
	// FatalLevel for fatal messages (calls os.Exit(1)).
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the main logger interface.
type Logger interface {
	SetLevel(level Level)
	GetLevel() Level

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger

	Writer() io.Writer
}

// Entry represents a single log entry.
type Entry struct {
	Time    time.Time              `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Caller  string                 `json:"caller,omitempty"`
}

// DefaultLogger is the default logger implementation.
type DefaultLogger struct {
	level      Level
	output     io.Writer
	mu         sync.Mutex
	fields     []Field
	timeFormat string
	caller     bool
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	Output     io.Writer
	TimeFormat string
	Caller     bool // Include caller information
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stdout,
		TimeFormat: time.RFC3339,
		Caller:     true,
	}
}

// New creates a new logger with the given configuration.
func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	return &DefaultLogger{
		level:      cfg.Level,
		output:     cfg.Output,
		fields:     []Field{},
		timeFormat: cfg.TimeFormat,
		caller:     cfg.Caller,
	}
}

// Default returns a logger with default configuration.
func Default() Logger {
	return New(DefaultConfig())
}

// SetLevel sets the minimum log level.
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level.
func (l *DefaultLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs a debug message.
func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info message.
func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning message.
func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error message.
func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// Fatal logs a fatal message and exits.
func (l *DefaultLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

// WithContext returns a logger with context fields.
func (l *DefaultLogger) WithContext(ctx context.Context) Logger {
	fields := extractContextFields(ctx)
	return l.WithFields(fields...)
}

// WithFields returns a logger with additional fields.
func (l *DefaultLogger) WithFields(fields ...Field) Logger {
	newLogger := &DefaultLogger{
		level:      l.level,
		output:     l.output,
		fields:     make([]Field, len(l.fields)+len(fields)),
		timeFormat: l.timeFormat,
		caller:     l.caller,
	}
	copy(newLogger.fields, l.fields)
	copy(newLogger.fields[len(l.fields):], fields)
	return newLogger
}

// Writer returns the logger's output writer.
func (l *DefaultLogger) Writer() io.Writer {
	return l.output
}

func (l *DefaultLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	entry := Entry{
		Time:    time.Now(),
		Level:   level.String(),
		Message: msg,
		Fields:  make(map[string]interface{}),
	}

	for _, f := range l.fields {
		entry.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	if l.caller {
		entry.Caller = getCaller(3)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			file = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Context keys for logger fields.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	companyIDKey contextKey = "company_id"
	trackIDKey   contextKey = "track_id"
)

func extractContextFields(ctx context.Context) []Field {
	var fields []Field

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, Field{Key: "request_id", Value: requestID})
	}
	if companyID, ok := ctx.Value(companyIDKey).(string); ok && companyID != "" {
		fields = append(fields, Field{Key: "company_id", Value: companyID})
	}
	if trackID, ok := ctx.Value(trackIDKey).(string); ok && trackID != "" {
		fields = append(fields, Field{Key: "track_id", Value: trackID})
	}

	return fields
}

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithCompanyID adds the calling company's ID to context.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey, companyID)
}

// WithTrackID adds the streamed track's ID to context.
func WithTrackID(ctx context.Context, trackID string) context.Context {
	return context.WithValue(ctx, trackIDKey, trackID)
}

// Helper functions for creating fields

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error creates an error field.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
