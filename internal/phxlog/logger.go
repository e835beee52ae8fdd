// Package phxlog is the ambient diagnostic logger shared by every core
// subsystem. Components log through this indirection, never through a bare
// log.Printf, so tests can capture output and production binaries can point
// it at a structured sink without touching package internals.
package phxlog

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced wholesale by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
