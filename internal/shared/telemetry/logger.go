package telemetry

import (
	"io"
	"os"
	"sort"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging surface passed to components that
// should not depend on the process-wide default.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// Options configures the default logger.
type Options struct {
	Output io.Writer
	Level  string
	JSON   bool
}

var (
	mu            sync.RWMutex
	defaultLogger = newCharm(Options{Output: os.Stdout, Level: "info", JSON: true})
)

// Configure replaces the process-wide logger.
func Configure(opts Options) {
	l := newCharm(opts)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Default returns the process-wide logger as a Logger.
func Default() Logger {
	return defaultAdapter{}
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	current().Debug(msg, keyvals(fields)...)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	current().Info(msg, keyvals(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	current().Warn(msg, keyvals(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	current().Error(msg, keyvals(fields)...)
}

type defaultAdapter struct{}

func (defaultAdapter) Debug(msg string, fields map[string]any) { Debug(msg, fields) }
func (defaultAdapter) Info(msg string, fields map[string]any)  { Info(msg, fields) }
func (defaultAdapter) Warn(msg string, fields map[string]any)  { Warn(msg, fields) }
func (defaultAdapter) Error(msg string, fields map[string]any) { Error(msg, fields) }

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, map[string]any) {}
func (Nop) Info(string, map[string]any)  {}
func (Nop) Warn(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}

func current() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func newCharm(opts Options) *charmlog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level, err := charmlog.ParseLevel(opts.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05Z07:00",
		Level:           level,
	})
	if opts.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return l
}

// keyvals flattens fields in key order so log lines are stable.
func keyvals(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
