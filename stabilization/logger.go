package stabilization

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

var (
	debugf       = func(string, ...interface{}) {}
	debugEnabled = false
)

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger enables per-frame tracing of state transitions. Passing nil disables it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		debugf = func(string, ...interface{}) {}
		debugEnabled = false
		return
	}
	debugf = f
	debugEnabled = true
}
