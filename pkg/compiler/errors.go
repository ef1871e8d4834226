package compiler

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

const (
	KindExpectedInputFile Kind = iota + 1
	KindExpectedOutputFile
	KindUnexpectedToken
	KindInputOpen
	KindOutputOpen
)

// Sentinels matched by errors.Is against a *ParseError of the same Kind.
var (
	ErrExpectedInputFile  = errors.New("filename expected after < token")
	ErrExpectedOutputFile = errors.New("filename expected after > token")
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrInputOpen          = errors.New("input file could not be opened")
	ErrOutputOpen         = errors.New("output file could not be opened")
)

func (k Kind) sentinel() error {
	switch k {
	case KindExpectedInputFile:
		return ErrExpectedInputFile
	case KindExpectedOutputFile:
		return ErrExpectedOutputFile
	case KindUnexpectedToken:
		return ErrUnexpectedToken
	case KindInputOpen:
		return ErrInputOpen
	case KindOutputOpen:
		return ErrOutputOpen
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case KindExpectedInputFile:
		return "expected-filename-after-redirect-in"
	case KindExpectedOutputFile:
		return "expected-filename-after-redirect-out"
	case KindUnexpectedToken:
		return "unexpected-token"
	case KindInputOpen:
		return "input-open-failed"
	case KindOutputOpen:
		return "output-open-failed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseError reports why a token sequence did not compile.
// Error returns the fixed user-facing message for the Kind; the position and
// any underlying OS error are kept for diagnostics.
type ParseError struct {
	Kind  Kind
	Index int    // position of the offending token
	Token string // offending token, or the path that failed to open
	Err   error  // OS error for the open kinds
}

func (e *ParseError) Error() string {
	if s := e.Kind.sentinel(); s != nil {
		return s.Error()
	}
	return e.Kind.String()
}

func (e *ParseError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
