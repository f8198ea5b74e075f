// Package sklogimpl holds the pluggable logger behind package sklog. It is
// separate from sklog so that Logger implementations can import it without
// creating a cycle.
package sklogimpl

import (
	"fmt"
	"sync"
)

// Severity of a log line.
type Severity int

// Severities in increasing order.
const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	switch s {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Logger is the interface every log sink implements.
type Logger interface {
	// Log writes one entry. depth is the number of stack frames between the
	// original sklog call and this method. An empty format means args are
	// joined as by fmt.Sprint.
	Log(depth int, severity Severity, format string, args ...interface{})

	// Flush writes out any buffered entries.
	Flush()
}

var (
	mutex  sync.RWMutex
	logger Logger
)

// SetLogger replaces the active Logger.
func SetLogger(l Logger) {
	mutex.Lock()
	defer mutex.Unlock()
	logger = l
}

// Log forwards to the active Logger.
func Log(depth int, severity Severity, format string, args ...interface{}) {
	mutex.RLock()
	l := logger
	mutex.RUnlock()
	if l == nil {
		return
	}
	l.Log(depth+1, severity, format, args...)
}

// Flush forwards to the active Logger.
func Flush() {
	mutex.RLock()
	l := logger
	mutex.RUnlock()
	if l != nil {
		l.Flush()
	}
}
