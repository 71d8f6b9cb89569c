package utils

import (
	"log"
	"os"
)

// Logger is a thin leveled wrapper over the standard log package. A nil
// *Logger is safe to call, which lets optional dependencies skip the
// nil checks at every call site.
type Logger struct {
	info *log.Logger
	warn *log.Logger
	err  *log.Logger
}

func NewLogger() *Logger {
	flags := log.LstdFlags | log.Lmsgprefix
	return &Logger{
		info: log.New(os.Stdout, "INFO  ", flags),
		warn: log.New(os.Stdout, "WARN  ", flags),
		err:  log.New(os.Stderr, "ERROR ", flags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.info.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.err.Printf(format, args...)
}
