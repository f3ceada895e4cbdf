// Package logger provides leveled logging for sercha-rag.
// Debug, info and warn lines are printed only in verbose mode; errors are
// always printed. Lines are plain text by default or JSON objects when
// JSON mode is on, for log collectors.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu       sync.RWMutex
	verbose  bool
	jsonMode bool
	output   io.Writer = os.Stderr
	now                = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between plain text and JSON lines.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonMode = v
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf("debug", true, format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf("info", true, format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf("warn", true, format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf("error", false, format, args...)
}

// Section prints a section header if verbose mode is enabled.
// In JSON mode it becomes a debug line with a section field.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	if jsonMode {
		writeJSON(map[string]string{"level": "debug", "section": name})
		return
	}
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

func logf(level string, verboseOnly bool, format string, args ...any) {
	// Exclusive lock: writers such as bytes.Buffer are not safe for concurrent use.
	mu.Lock()
	defer mu.Unlock()
	if verboseOnly && !verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if jsonMode {
		writeJSON(map[string]string{"level": level, "msg": msg})
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", label(level), msg)
}

// writeJSON must be called with mu held.
func writeJSON(fields map[string]string) {
	fields["time"] = now().UTC().Format(time.RFC3339)
	line, err := json.Marshal(fields)
	if err != nil {
		return
	}
	fmt.Fprintf(output, "%s\n", line)
}

func label(level string) string {
	switch level {
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn":
		return "WARN"
	default:
		return "ERROR"
	}
}
