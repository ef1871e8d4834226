// Package fs provides the file operations the interpreter performs on behalf
// of a command line. They respect sandbox boundaries.
package fs

import (
	"os"

	"github.com/rcarmo/go-smallsh/pkg/sandbox"
)

// RedirectPerm is the mode of files created by output redirection.
const RedirectPerm os.FileMode = 0640

// ExpandHome replaces a leading '~' with $HOME. Only the first character is
// considered, so "~user" becomes "$HOMEuser" and "a~b" is left alone.
func ExpandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	return os.Getenv("HOME") + path[1:]
}

// OpenInput opens a redirection source read-only.
func OpenInput(path string) (*os.File, error) {
	return sandbox.Open(path)
}

// OpenOutput creates or truncates a redirection sink, write-only.
func OpenOutput(path string) (*os.File, error) {
	return sandbox.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, RedirectPerm)
}

// Chdir changes the working directory.
func Chdir(path string) error {
	return sandbox.Chdir(path)
}
