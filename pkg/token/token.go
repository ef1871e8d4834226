// Package token splits a command line into words and expands the "$$" marker
// into the interpreter's process id.
package token

import (
	"strconv"
	"strings"
)

// Marker is replaced by the interpreter's pid in every word.
const Marker = "$$"

// MaxTokens is the default cap on words taken from one line.
const MaxTokens = 511

// Expander turns raw lines into words.
type Expander struct {
	pid       string
	maxTokens int
}

// NewExpander returns an Expander substituting pid for the marker and keeping
// at most maxTokens words per line (MaxTokens when maxTokens <= 0).
func NewExpander(pid, maxTokens int) *Expander {
	if maxTokens <= 0 {
		maxTokens = MaxTokens
	}
	return &Expander{pid: strconv.Itoa(pid), maxTokens: maxTokens}
}

// IsBlank reports whether line carries no command: empty, whitespace only, or
// a comment starting with '#' in the first column.
func IsBlank(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	return strings.TrimSpace(line) == ""
}

// Split returns the expanded words of line. Blank and comment lines yield nil.
// Words beyond the cap are dropped without being expanded.
func (e *Expander) Split(line string) []string {
	if IsBlank(line) {
		return nil
	}
	fields := strings.Fields(line)
	if len(fields) > e.maxTokens {
		fields = fields[:e.maxTokens]
	}
	for i, f := range fields {
		fields[i] = e.Expand(f)
	}
	return fields
}

// Expand replaces every non-overlapping marker in word, scanning left to right.
func (e *Expander) Expand(word string) string {
	idx := strings.Index(word, Marker)
	if idx < 0 {
		return word
	}
	buf := make([]byte, 0, len(word)+1)
	rest := word
	for idx >= 0 {
		buf = grow(buf, len(buf)+idx+len(e.pid))
		buf = append(buf, rest[:idx]...)
		buf = append(buf, e.pid...)
		rest = rest[idx+len(Marker):]
		idx = strings.Index(rest, Marker)
	}
	buf = grow(buf, len(buf)+len(rest))
	buf = append(buf, rest...)
	return string(buf)
}

// grow doubles the capacity of buf until it holds at least need bytes.
func grow(buf []byte, need int) []byte {
	c := cap(buf)
	if c >= need {
		return buf
	}
	if c == 0 {
		c = 1
	}
	for c < need {
		c *= 2
	}
	out := make([]byte, len(buf), c)
	copy(out, buf)
	return out
}
