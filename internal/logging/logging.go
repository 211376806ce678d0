// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides structured, leveled logging for the synthesis
// pipeline: strategy iterations, violation traces, and optimizer progress.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level is a logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) charm() charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Config configures a Logger.
type Config struct {
	Level  Level
	Output io.Writer
	Prefix string
}

// DefaultConfig returns sane defaults: info level, stderr, no prefix.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Logger wraps charmbracelet/log with snowcap's conventions.
type Logger struct {
	inner *charmlog.Logger
}

// New creates a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	inner := charmlog.NewWithOptions(out, charmlog.Options{
		Prefix:          cfg.Prefix,
		ReportTimestamp: true,
	})
	inner.SetLevel(cfg.Level.charm())
	return &Logger{inner: inner}
}

// With returns a child Logger with the given key-value pairs attached to
// every subsequent record.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// Nop returns a Logger that discards everything, for tests that don't care
// about log output.
func Nop() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}
