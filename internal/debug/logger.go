package debug

import (
	"io"
	"log"
	"os"
)

// Logger writes diagnostic lines when debug mode is on. A nil Logger is
// valid and silent, so components can be built without one.
type Logger struct {
	enabled bool
	out     *log.Logger
}

// NewLogger enables logging to debug.log in the working directory.
func NewLogger(enabled bool) *Logger {
	return NewFileLogger(enabled, "debug.log")
}

func NewFileLogger(enabled bool, path string) *Logger {
	if !enabled {
		return &Logger{}
	}
	var w io.Writer = os.Stderr
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		w = logFile
	}
	l := NewWriterLogger(w)
	l.Printf("=== DEBUG MODE ENABLED ===")
	return l
}

// NewWriterLogger logs to w unconditionally.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{enabled: true, out: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d.IsEnabled() {
		d.out.Printf(format, args...)
	}
}

func (d *Logger) Println(args ...interface{}) {
	if d.IsEnabled() {
		d.out.Println(args...)
	}
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled && d.out != nil
}
