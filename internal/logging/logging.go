// Package logging wraps charmbracelet/log with the conventions used across
// yarvis: quiet by default, verbose file logging when YARVIS_DEBUG is set.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// DebugEnv enables debug logging to a file when set to any non-empty value.
const DebugEnv = "YARVIS_DEBUG"

// LogFileName is the debug log written under the XDG state directory.
const LogFileName = "yarvis.log"

type AppLogger struct {
	logger *log.Logger
	debug  bool
}

var (
	defaultLogger *AppLogger
	once          sync.Once
)

// GetDefault returns the process-wide logger, creating it on first use.
func GetDefault() *AppLogger {
	once.Do(func() {
		defaultLogger = NewAppLogger()
	})
	return defaultLogger
}

// Package-level convenience functions
func Info(msg string, keyvals ...interface{}) {
	GetDefault().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	GetDefault().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	GetDefault().Error(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	GetDefault().Debug(msg, keyvals...)
}

func LogMessage(msg tea.Msg) {
	GetDefault().LogMessage(msg)
}

// NewAppLogger builds the logger from the environment.
//
// With YARVIS_DEBUG set, everything down to debug level goes to
// $XDG_STATE_HOME/yarvis/yarvis.log, truncated on each run. Otherwise only
// warnings and errors are written to stderr. If the debug file cannot be
// created the logger falls back to stderr at debug level.
func NewAppLogger() *AppLogger {
	debug := os.Getenv(DebugEnv) != ""
	if !debug {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Yarvis",
		})
		logger.SetLevel(log.WarnLevel)
		return &AppLogger{logger: logger}
	}

	var out io.Writer = os.Stderr
	logPath, err := xdg.StateFile(filepath.Join("yarvis", LogFileName))
	if err == nil {
		logFile, openErr := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if openErr == nil {
			out = logFile
		} else {
			err = openErr
		}
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "Yarvis",
	})
	logger.SetLevel(log.DebugLevel)

	if err != nil {
		logger.Warn("Debug log file unavailable, logging to stderr", "error", err)
	} else {
		logger.Info("Debug logging enabled", "log_file", logPath)
	}

	return &AppLogger{logger: logger, debug: true}
}

// New returns a logger writing to w at the given level. Debug output is
// enabled when level is log.DebugLevel.
func New(w io.Writer, level log.Level) *AppLogger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "Yarvis"})
	logger.SetLevel(level)
	return &AppLogger{logger: logger, debug: level <= log.DebugLevel}
}

// With returns a child logger that prepends keyvals to every entry.
func (al *AppLogger) With(keyvals ...interface{}) *AppLogger {
	return &AppLogger{logger: al.logger.With(keyvals...), debug: al.debug}
}

// IsDebug reports whether debug output is enabled.
func (al *AppLogger) IsDebug() bool {
	return al.debug
}

func (al *AppLogger) Info(msg string, keyvals ...interface{}) {
	al.logger.Info(msg, keyvals...)
}

func (al *AppLogger) Warn(msg string, keyvals ...interface{}) {
	al.logger.Warn(msg, keyvals...)
}

func (al *AppLogger) Error(msg string, keyvals ...interface{}) {
	al.logger.Error(msg, keyvals...)
}

func (al *AppLogger) Debug(msg string, keyvals ...interface{}) {
	if al.debug {
		al.logger.Debug(msg, keyvals...)
	}
}

// LogMessage records a bubbletea message (debug only).
func (al *AppLogger) LogMessage(msg tea.Msg) {
	if !al.debug {
		return
	}

	al.logger.Debug("Message received",
		"type", fmt.Sprintf("%T", msg),
		"content", fmt.Sprintf("%+v", msg),
	)
}

// LogOperation records how long a lifecycle operation took and whether it
// failed. Call it deferred with the start time:
//
//	defer log.LogOperation("archive", time.Now(), &err)
func (al *AppLogger) LogOperation(operation string, start time.Time, errp *error) {
	duration := time.Since(start)
	if errp != nil && *errp != nil {
		al.logger.Debug("Operation failed", "operation", operation, "duration", duration, "error", *errp)
		return
	}
	if al.debug {
		al.logger.Debug("Operation finished", "operation", operation, "duration", duration)
	}
}

// NewTestLogger creates a logger that writes to a buffer for testing
func NewTestLogger() (*AppLogger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
		Prefix:          "Test",
	})
	logger.SetLevel(log.DebugLevel)

	return &AppLogger{
		logger: logger,
		debug:  true,
	}, &buf
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *AppLogger {
	return New(io.Discard, log.FatalLevel)
}
