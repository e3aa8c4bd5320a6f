// Package log wraps logrus. Nothing is written unless logs.write is enabled.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/key"
	"github.com/opentube/opentube/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var enabled bool

// Fields is an alias so callers do not need to import logrus.
type Fields = logrus.Fields

// Setup opens today's log file and applies format and level from config.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
	f, err := filesystem.API().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		enabled = false
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return nil
}

// Enabled reports whether log output is active.
func Enabled() bool {
	return enabled
}

// Entry is a structured log line under construction.
type Entry struct {
	fields Fields
}

// With starts a structured entry.
func With(fields Fields) Entry {
	return Entry{fields: fields}
}

func (e Entry) logf(level logrus.Level, format string, args ...any) {
	if enabled {
		logrus.WithFields(e.fields).Logf(level, format, args...)
	}
}

func (e Entry) Debugf(format string, args ...any) { e.logf(logrus.DebugLevel, format, args...) }
func (e Entry) Infof(format string, args ...any)  { e.logf(logrus.InfoLevel, format, args...) }
func (e Entry) Warnf(format string, args ...any)  { e.logf(logrus.WarnLevel, format, args...) }
func (e Entry) Errorf(format string, args ...any) { e.logf(logrus.ErrorLevel, format, args...) }

var plain Entry

func Tracef(format string, args ...any) { plain.logf(logrus.TraceLevel, format, args...) }
func Debugf(format string, args ...any) { plain.logf(logrus.DebugLevel, format, args...) }
func Infof(format string, args ...any)  { plain.logf(logrus.InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { plain.logf(logrus.WarnLevel, format, args...) }
func Errorf(format string, args ...any) { plain.logf(logrus.ErrorLevel, format, args...) }

func Error(args ...any) {
	if enabled {
		logrus.Error(args...)
	}
}
