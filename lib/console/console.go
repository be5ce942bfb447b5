package console

import (
	"fmt"
	"io"
	"os"

	"github.com/TwiN/go-color"
)

var (
	out     io.Writer = os.Stdout
	verbose bool
)

// Redirect console output. Used by tests.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	out = w
}

// Enable or disable verbose messages.
func SetVerbose(v bool) {
	verbose = v
}

// Log verbose message to console.
// Only printed when verbose output is enabled (config, `--verbose` or `VERBOSE=1`).
func Verbose(message string, vars ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(out, color.Ize(color.Gray, message+"\n"), vars...)
}

// Log success message to console.
func Success(message string, vars ...any) {
	fmt.Fprintf(out, color.Ize(color.Green, message+"\n"), vars...)
}

// Log info message to console.
func Info(message string, vars ...any) {
	fmt.Fprintf(out, color.Ize(color.Cyan, message+"\n"), vars...)
}

// Log warning message to console.
func Warning(message string, vars ...any) {
	fmt.Fprintf(out, color.Ize(color.Yellow, message+"\n"), vars...)
}

// Build a user-facing error.
// Supports `%w` for wrapping.
func Error(message string, vars ...any) error {
	return fmt.Errorf(color.Ize(color.Red, message), vars...)
}

// Log error message to console.
func ErrorPrint(message string, vars ...any) {
	fmt.Fprintf(out, color.Ize(color.Red, message+"\n"), vars...)
}

// Log error message to console, only in verbose mode.
func ErrorPrintV(message string, vars ...any) {
	if !verbose {
		return
	}
	ErrorPrint(message, vars...)
}
