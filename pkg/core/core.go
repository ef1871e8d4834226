// Package core provides the I/O plumbing and exit conventions shared by the
// interpreter packages.
package core

import (
	"fmt"
	"io"
	"os"
)

// Exit codes following POSIX conventions
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Name is the program name used as the prefix of diagnostics.
const Name = "smallsh"

// Stdio holds the standard I/O streams of the interpreter.
// This allows for easy testing by injecting mock streams.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DefaultStdio returns Stdio configured with os.Stdin, os.Stdout, os.Stderr.
func DefaultStdio() *Stdio {
	return &Stdio{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// Errorf writes a formatted error message to stderr.
func (s *Stdio) Errorf(format string, args ...any) {
	fmt.Fprintf(s.Err, format, args...)
}

// Printf writes a formatted message to stdout.
func (s *Stdio) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Print writes a message to stdout.
func (s *Stdio) Print(args ...any) {
	fmt.Fprint(s.Out, args...)
}

// UsageError prints a usage error and returns ExitUsage.
func UsageError(stdio *Stdio, message string) int {
	stdio.Errorf("%s: %s\n", Name, message)
	return ExitUsage
}
