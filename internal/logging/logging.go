// Package logging provides the logger interface used across the application.
package logging

import "log"

// Logger is the minimal logging contract. Retention cleanup logs every
// deletion through it before the file is removed, so the audit trail of
// destroyed backups survives in the journal even when a run fails later.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// StdLogger writes to the standard library logger.
type StdLogger struct{}

func (StdLogger) Info(format string, args ...any)  { log.Printf("INFO: "+format, args...) }
func (StdLogger) Error(format string, args ...any) { log.Printf("ERROR: "+format, args...) }

// Nop discards all log output. Useful in tests that don't assert on logs.
type Nop struct{}

func (Nop) Info(format string, args ...any)  {}
func (Nop) Error(format string, args ...any) {}
