// Package debug provides conditional debug logging for sage.
//
// Set SAGE_DEBUG to any non-empty value to enable it:
//
//	SAGE_DEBUG=1 sage --topic frontend-beginner 2>debug.log
//
// Messages go to stderr with a timestamp. While disabled every function
// returns immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[SAGE_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
	out     io.Writer = os.Stderr
)

func init() {
	if os.Getenv("SAGE_DEBUG") != "" {
		SetEnabled(true)
	}
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled turns debug logging on or off.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. The TUI points this at a file so log
// lines do not tear the screen.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

// Logger returns the debug logger when enabled and a silent logger otherwise,
// for packages that take a *log.Logger.
func Logger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

func active() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes how long name took.
func LogTiming(name string, d time.Duration) {
	if l := active(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a message only when cond holds.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs entry immediately and exit with elapsed time when the
// returned function runs:
//
//	defer debug.LogEnterExit("resolve")()
func LogEnterExit(name string) func() {
	l := active()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if l := active(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}

// Section logs a visual separator.
func Section(name string) {
	if l := active(); l != nil {
		l.Printf("=== %s ===", name)
	}
}

// Assert panics with msg when cond is false. Only active when enabled.
func Assert(cond bool, msg string) {
	l := active()
	if l == nil || cond {
		return
	}
	l.Printf("ASSERTION FAILED: %s", msg)
	panic(fmt.Sprintf("debug assertion failed: %s", msg))
}
