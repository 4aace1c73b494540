// Package logger provides leveled logging for docchat.
// Debug, Info and Section print only in verbose mode (--verbose).
// Warn and Error always print, so per-file ingestion failures are visible.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

var (
	warnPrefix  = color.New(color.FgYellow).SprintFunc()
	errorPrefix = color.New(color.FgRed, color.Bold).SprintFunc()
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
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
	logf(true, "[DEBUG]", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(true, "[INFO]", format, args...)
}

// Warn prints a warning.
func Warn(format string, args ...any) {
	logf(false, warnPrefix("[WARN]"), format, args...)
}

// Error prints an error.
func Error(format string, args ...any) {
	logf(false, errorPrefix("[ERROR]"), format, args...)
}

// logf serialises writes, since output is usually not safe for concurrent use.
func logf(verboseOnly bool, prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verboseOnly && !verbose {
		return
	}
	fmt.Fprintf(output, prefix+" "+format+"\n", args...)
}
