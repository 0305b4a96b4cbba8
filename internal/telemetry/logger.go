package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	clog "github.com/charmbracelet/log"
)

// Logger writes structured JSON lines through charmbracelet/log. A nil *Logger is
// valid and discards everything.
type Logger struct {
	log *clog.Logger
	w   io.WriteCloser
}

type Options struct {
	Path   string
	Level  string
	Prefix string
}

func NewLogger(opts Options) (*Logger, error) {
	level := clog.InfoLevel
	if opts.Level != "" {
		parsed, err := clog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	var w io.WriteCloser = nopCloser{Writer: io.Discard}
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}
	return newLogger(w, level, opts.Prefix), nil
}

// NewWriterLogger logs to w without taking ownership of it.
func NewWriterLogger(w io.Writer, level clog.Level) *Logger {
	return newLogger(nopCloser{Writer: w}, level, "")
}

func newLogger(w io.WriteCloser, level clog.Level, prefix string) *Logger {
	if prefix == "" {
		prefix = "codedojo"
	}
	return &Logger{
		log: clog.NewWithOptions(w, clog.Options{
			Prefix:          prefix,
			Level:           level,
			Formatter:       clog.JSONFormatter,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339Nano,
		}),
		w: w,
	}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.write(clog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.write(clog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.write(clog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.write(clog.ErrorLevel, msg, fields)
}

func (l *Logger) write(level clog.Level, msg string, fields map[string]any) {
	if l == nil || l.log == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	keyvals := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		keyvals = append(keyvals, k, fields[k])
	}
	l.log.Log(level, msg, keyvals...)
}

func (l *Logger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
