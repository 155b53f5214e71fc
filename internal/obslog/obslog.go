// Package obslog centralizes the stdlib log.Printf calls the teacher
// scatters ad-hoc across pkg/storage/transaction.go, pkg/storage/badger.go,
// and pkg/nornicdb/db.go (e.g. "[Transaction %s] Committing with
// metadata: %v") into one leveled logger, so editsystem and the
// osmgraph-edit CLI share a sink instead of each importing log directly.
package obslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses one of DEBUG/INFO/WARN/ERROR, case-insensitively.
// Unrecognized input returns LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger wraps a standard library *log.Logger with a verbosity gate.
type Logger struct {
	min Level
	std *log.Logger
}

// New builds a Logger writing to w at or above min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{min: min, std: log.New(w, "", log.LstdFlags)}
}

// Default builds a Logger writing to stderr at LevelInfo, the same
// default sink the teacher's Printf calls implicitly use.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
