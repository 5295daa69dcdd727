// Package logger is the process-wide leveled logger. Messages use printf
// formatting; structured fields can be attached with With.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const timeFormat = "2006-01-02 15:04:05"

var current atomic.Pointer[log.Logger]

func init() {
	current.Store(log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           log.InfoLevel,
	}))
}

func base() *log.Logger {
	return current.Load()
}

// SetLevel sets the minimum level by name (DEBUG, INFO, WARN, ERROR).
// Unknown names leave the level unchanged.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		base().SetLevel(log.DebugLevel)
	case "INFO":
		base().SetLevel(log.InfoLevel)
	case "WARN":
		base().SetLevel(log.WarnLevel)
	case "ERROR":
		base().SetLevel(log.ErrorLevel)
	}
}

// SetFormat selects the line format: "text", "json" or "logfmt".
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		base().SetFormatter(log.TextFormatter)
	case "json":
		base().SetFormatter(log.JSONFormatter)
	case "logfmt":
		base().SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetOutput directs log lines to "stdout", "stderr" or the named file,
// which is created or appended to.
func SetOutput(output string) error {
	var w io.Writer
	switch output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = f
	}
	base().SetOutput(w)
	return nil
}

// SetWriter directs log lines to w. Intended for tests.
func SetWriter(w io.Writer) {
	base().SetOutput(w)
}

func Debug(format string, v ...any) {
	base().Debugf(format, v...)
}

func Info(format string, v ...any) {
	base().Infof(format, v...)
}

func Warn(format string, v ...any) {
	base().Warnf(format, v...)
}

func Error(format string, v ...any) {
	base().Errorf(format, v...)
}

// Entry is a logger carrying a fixed set of key/value fields.
type Entry struct {
	l *log.Logger
}

// With returns an Entry that adds keyvals to every line it writes.
func With(keyvals ...any) Entry {
	return Entry{l: base().With(keyvals...)}
}

func (e Entry) Debug(format string, v ...any) { e.l.Debugf(format, v...) }
func (e Entry) Info(format string, v ...any)  { e.l.Infof(format, v...) }
func (e Entry) Warn(format string, v ...any)  { e.l.Warnf(format, v...) }
func (e Entry) Error(format string, v ...any) { e.l.Errorf(format, v...) }
