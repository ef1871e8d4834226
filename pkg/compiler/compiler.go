// Package compiler turns the words of a command line into a Command: an
// argument vector plus its input/output bindings and foreground flag.
//
// The grammar is
//
//	command [< infile] [> outfile] [&]
//
// in that order. '&' is only meaningful as the last word; anywhere else among
// the arguments it is an ordinary argument.
package compiler

import (
	"errors"
	"os"

	corefs "github.com/rcarmo/go-smallsh/pkg/core/fs"
)

// Redirection and background operators.
const (
	OpInput      = "<"
	OpOutput     = ">"
	OpBackground = "&"
)

type phase int

const (
	phaseArgs        phase = iota // gathering argv
	phaseInputFile                // next word names the input file
	phaseAfterInput               // only '>' or a final '&' may follow
	phaseOutputFile               // next word names the output file
	phaseAfterOutput              // only a final '&' may follow
)

// Options carries what compilation depends on besides the words.
type Options struct {
	// Stdin and Stdout are bound when the line does not redirect.
	Stdin  *os.File
	Stdout *os.File
	// NullDevice backs the unset side of a background command.
	NullDevice string
	// ForegroundOnly makes a final '&' a no-op.
	ForegroundOnly bool
}

// Command is one compiled command line.
type Command struct {
	Args       []string
	In         *os.File
	Out        *os.File
	InPath     string // empty when In is the inherited stdin
	OutPath    string // empty when Out is the inherited stdout
	Foreground bool
}

// Name returns argv[0].
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Redirected reports whether the input and output were bound to files
// (including the null device) rather than inherited.
func (c *Command) Redirected() (in, out bool) {
	return c.InPath != "", c.OutPath != ""
}

// Release closes the descriptors the compiler opened. Inherited streams are
// left alone. It is safe to call more than once.
func (c *Command) Release() error {
	var errs []error
	if c.InPath != "" && c.In != nil {
		errs = append(errs, c.In.Close())
		c.In = nil
	}
	if c.OutPath != "" && c.Out != nil {
		errs = append(errs, c.Out.Close())
		c.Out = nil
	}
	return errors.Join(errs...)
}

// IsNoop reports whether words should be skipped without compiling: an empty
// line, or one that starts with a bare operator.
func IsNoop(words []string) bool {
	if len(words) == 0 {
		return true
	}
	switch words[0] {
	case OpInput, OpOutput, OpBackground:
		return true
	}
	return false
}

// Compile builds a Command from words. It returns (nil, nil) for a no-op line
// (see IsNoop) and a *ParseError when the words do not fit the grammar or a
// redirection target cannot be opened. Descriptors opened before a failure
// are closed.
func Compile(words []string, opts Options) (*Command, error) {
	if IsNoop(words) {
		return nil, nil
	}

	cmd := &Command{
		In:         opts.Stdin,
		Out:        opts.Stdout,
		Foreground: true,
	}

	fail := func(kind Kind, i int, tok string, err error) (*Command, error) {
		_ = cmd.Release()
		return nil, &ParseError{Kind: kind, Index: i, Token: tok, Err: err}
	}

	state := phaseArgs
	for i, word := range words {
		last := i == len(words)-1

		switch state {
		case phaseArgs:
			switch {
			case word == OpInput:
				if last {
					return fail(KindExpectedInputFile, i, word, nil)
				}
				state = phaseInputFile
			case word == OpOutput:
				if last {
					return fail(KindExpectedOutputFile, i, word, nil)
				}
				state = phaseOutputFile
			case word == OpBackground && last:
				if err := cmd.background(opts); err != nil {
					return fail(kindForNullError(err), i, opts.NullDevice, err)
				}
			default:
				cmd.Args = append(cmd.Args, word)
			}

		case phaseInputFile:
			path := corefs.ExpandHome(word)
			f, err := corefs.OpenInput(path)
			if err != nil {
				return fail(KindInputOpen, i, path, err)
			}
			cmd.In, cmd.InPath = f, path
			state = phaseAfterInput

		case phaseAfterInput:
			switch {
			case word == OpOutput:
				if last {
					return fail(KindExpectedOutputFile, i, word, nil)
				}
				state = phaseOutputFile
			case word == OpBackground && last:
				if err := cmd.background(opts); err != nil {
					return fail(kindForNullError(err), i, opts.NullDevice, err)
				}
			default:
				return fail(KindUnexpectedToken, i, word, nil)
			}

		case phaseOutputFile:
			path := corefs.ExpandHome(word)
			f, err := corefs.OpenOutput(path)
			if err != nil {
				return fail(KindOutputOpen, i, path, err)
			}
			cmd.Out, cmd.OutPath = f, path
			state = phaseAfterOutput

		case phaseAfterOutput:
			if word != OpBackground || !last {
				return fail(KindUnexpectedToken, i, word, nil)
			}
			if err := cmd.background(opts); err != nil {
				return fail(kindForNullError(err), i, opts.NullDevice, err)
			}
		}
	}
	return cmd, nil
}

type nullOpenError struct {
	output bool
	err    error
}

func (e *nullOpenError) Error() string { return e.err.Error() }
func (e *nullOpenError) Unwrap() error { return e.err }

func kindForNullError(err error) Kind {
	var ne *nullOpenError
	if errors.As(err, &ne) && ne.output {
		return KindOutputOpen
	}
	return KindInputOpen
}

// background clears the foreground flag and binds whichever side is still
// inherited to the null device. In foreground-only mode it does nothing.
func (c *Command) background(opts Options) error {
	if opts.ForegroundOnly {
		return nil
	}
	null := opts.NullDevice
	if null == "" {
		null = os.DevNull
	}
	if c.InPath == "" {
		f, err := os.Open(null)
		if err != nil {
			return &nullOpenError{err: err}
		}
		c.In, c.InPath = f, null
	}
	if c.OutPath == "" {
		f, err := os.OpenFile(null, os.O_WRONLY, 0)
		if err != nil {
			return &nullOpenError{output: true, err: err}
		}
		c.Out, c.OutPath = f, null
	}
	c.Foreground = false
	return nil
}
