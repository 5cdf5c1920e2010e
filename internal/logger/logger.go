// Package logger writes leveled diagnostics to stderr.
//
// Debug, Info and Section lines appear only with --verbose, so the
// ingestion and query pipelines can be traced without cluttering command
// output. Warn and Error are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
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

// SetTimestamps prefixes each line with an RFC 3339 timestamp.
// Long-running commands (serve, ingest --watch) turn this on.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput sets the destination writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug logs pipeline detail in verbose mode.
func Debug(format string, args ...any) {
	write(true, "DEBUG", format, args)
}

// Info logs progress in verbose mode.
func Info(format string, args ...any) {
	write(true, "INFO", format, args)
}

// Warn logs a recoverable problem.
func Warn(format string, args ...any) {
	write(false, "WARN", format, args)
}

// Error logs a failure that aborted an operation.
func Error(format string, args ...any) {
	write(false, "ERROR", format, args)
}

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func write(verboseOnly bool, level, format string, args []any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	prefix := "[" + level + "] "
	if timestamps {
		prefix = now().UTC().Format(time.RFC3339) + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}
