package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/rcarmo/go-smallsh/pkg/compiler"
	corefs "github.com/rcarmo/go-smallsh/pkg/core/fs"
)

// builtin runs in the interpreter process and reports whether the session
// should end.
type builtin func(s *Shell, cmd *compiler.Command) bool

var builtins = map[string]builtin{
	"exit":   builtinExit,
	"cd":     builtinCd,
	"status": builtinStatus,
}

// output is where a builtin prints: an explicit '>' target, otherwise the
// interpreter's own output. The null device bound by '&' does not count.
func (s *Shell) output(cmd *compiler.Command) io.Writer {
	if cmd.OutPath == "" || cmd.Out == nil {
		return s.stdio.Out
	}
	if !cmd.Foreground && cmd.OutPath == s.cfg.NullDevice {
		return s.stdio.Out
	}
	return cmd.Out
}

func builtinExit(s *Shell, _ *compiler.Command) bool {
	s.abandonJobs()
	return true
}

// builtinCd prints failures to the terminal; only the WAS line follows '>'.
func builtinCd(s *Shell, cmd *compiler.Command) bool {
	prev, _ := os.Getwd()

	target, explicit := os.Getenv("HOME"), false
	if len(cmd.Args) > 1 && cmd.Args[1] != compiler.OpBackground {
		target, explicit = corefs.ExpandHome(cmd.Args[1]), true
	}

	if err := corefs.Chdir(target); err != nil {
		s.log.Info("cd.failed", "path", target, "error", err.Error())
		if !explicit {
			return false
		}
		if errors.Is(err, syscall.ENOTDIR) {
			fmt.Fprintf(s.stdio.Out, "cd: cannot change to %s: Not a directory\n", target)
		} else {
			fmt.Fprintf(s.stdio.Out, "cd: %s: No such file or directory\n", target)
		}
		return false
	}

	if cwd, err := os.Getwd(); err == nil {
		_ = os.Setenv("PWD", cwd)
	}
	fmt.Fprintf(s.output(cmd), "WAS %s\n", prev)
	return false
}

func builtinStatus(s *Shell, cmd *compiler.Command) bool {
	w := s.output(cmd)
	if s.last.Signaled {
		fmt.Fprintf(w, "LAST FOREGROUND PROCESS TERMINATED by signal %d\n", int(s.last.Signal))
	} else {
		fmt.Fprintf(w, "LAST FOREGROUND PROCESS EXITED with status %d\n", s.last.Code)
	}
	return false
}
