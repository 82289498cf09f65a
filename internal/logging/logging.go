// File: internal/logging/logging.go
// Package logging is the server's log output, per SPEC_FULL.md §4.A.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on control/debug.go's probe-registry idiom for the level
// filter shape and pool/default.go's sync.Once singleton for Default().
// The teacher corpus uses only the standard log package everywhere (no
// third-party logger appears in any retrieved repo for this domain — see
// DESIGN.md), so Logger wraps *log.Logger rather than reaching for an
// ecosystem structured logger the corpus never demonstrates.

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level filters which calls actually write output.
type Level int

const (
	Debug Level = iota
	Info
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a level-filtered wrapper around *log.Logger that can reopen
// its output file, the mechanism spec §6's HUP/USR1 "reopen logs" signal
// needs.
type Logger struct {
	mu    sync.Mutex
	level Level
	path  string
	file  *os.File
	inner *log.Logger
}

// New builds a Logger writing to path at the given level. An empty path
// logs to stderr and Reopen becomes a no-op, matching a foreground/debug
// run with no configured log file.
func New(path string, level Level) (*Logger, error) {
	l := &Logger{level: level, path: path}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) open() error {
	var w io.Writer = os.Stderr
	if l.path != "" {
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		l.file = f
		w = f
	}
	l.inner = log.New(w, "", log.LstdFlags)
	return nil
}

// Reopen closes and reopens the log file at the same path, for SIGHUP/
// SIGUSR1-triggered log rotation (spec §6).
func (l *Logger) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.path == "" {
		return nil
	}
	if l.file != nil {
		l.file.Close()
	}
	return l.open()
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Debugf logs at Debug level.
func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }

// Infof logs at Info level.
func (l *Logger) Infof(format string, args ...any) { l.log(Info, format, args...) }

// Errorf logs at Error level.
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns a process-wide stderr Logger at Info level, mirroring
// pool.DefaultManager()'s sync.Once singleton idiom so components that
// don't carry an explicit *Logger reference still log consistently.
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := New("", Info)
		if err != nil {
			panic(err) // stderr logger construction cannot fail
		}
		defaultLog = l
	})
	return defaultLog
}
