package csgv

import (
	"log"
	"os"
)

// Logger is the minimal leveled logging surface the parallel driver
// reports progress through. The core never logs unless a caller sets
// Volume.Logger explicitly.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger discards everything; it is the default so that library
// users who never configure a Logger see no output.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// StdLogger adapts the standard library's log.Logger to the Logger
// interface, prefixing each level.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a Logger writing to stderr with a "csgv " prefix.
func NewStdLogger() *StdLogger {
	return &StdLogger{log.New(os.Stderr, "csgv ", log.LstdFlags)}
}

func (l *StdLogger) Debugf(format string, args ...interface{}) { l.Printf("DEBUG "+format, args...) }
func (l *StdLogger) Infof(format string, args ...interface{})  { l.Printf("INFO "+format, args...) }
func (l *StdLogger) Warnf(format string, args ...interface{})  { l.Printf("WARN "+format, args...) }
func (l *StdLogger) Errorf(format string, args ...interface{}) { l.Printf("ERROR "+format, args...) }
