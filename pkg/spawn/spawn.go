// Package spawn starts external commands with explicit stdio descriptors and
// waits for them by pid.
//
// Go cannot run code between fork and exec, so a command is started by
// re-entering the interpreter binary under a reserved argv[0] (see Init). That
// helper adjusts signal dispositions and execs the real program found on PATH,
// keeping the pid the interpreter was handed.
package spawn

import (
	"fmt"
	"os"
	"sync"
)

// Spawner starts commands through the exec helper.
type Spawner struct {
	// Self is the binary to re-enter; os.Executable() when empty.
	Self string
	// Stderr is handed to every child; os.Stderr when nil.
	Stderr *os.File

	once    sync.Once
	selfErr error
}

func (s *Spawner) self() (string, error) {
	s.once.Do(func() {
		if s.Self != "" {
			return
		}
		s.Self, s.selfErr = os.Executable()
	})
	return s.Self, s.selfErr
}

// Start launches argv with in and out as its stdin and stdout and returns the
// child's pid. A foreground child can be interrupted from the terminal; a
// background one ignores SIGINT. Both ignore SIGTSTP.
//
// An error means no process was created. A program that cannot be found is
// not an error here: the child reports it and exits with status 1.
func (s *Spawner) Start(argv []string, in, out *os.File, foreground bool) (int, error) {
	self, err := s.self()
	if err != nil {
		return 0, fmt.Errorf("locate interpreter binary: %w", err)
	}
	helper := helperBackground
	if foreground {
		helper = helperForeground
	}
	stderr := s.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	args := make([]string, 0, len(argv)+1)
	args = append(args, helper)
	args = append(args, argv...)

	proc, err := os.StartProcess(self, args, &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{in, out, stderr},
	})
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	// The pid is reaped with Wait/Poll; the handle is not needed.
	_ = proc.Release()
	return pid, nil
}
