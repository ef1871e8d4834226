// Package shell runs the interactive read-compile-dispatch loop: builtins run
// in-process, other commands are spawned in the foreground or tracked as
// background jobs.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcarmo/go-smallsh/pkg/compiler"
	"github.com/rcarmo/go-smallsh/pkg/config"
	"github.com/rcarmo/go-smallsh/pkg/core"
	"github.com/rcarmo/go-smallsh/pkg/core/logging"
	"github.com/rcarmo/go-smallsh/pkg/jobs"
	"github.com/rcarmo/go-smallsh/pkg/mode"
	"github.com/rcarmo/go-smallsh/pkg/procutil"
	"github.com/rcarmo/go-smallsh/pkg/spawn"
	"github.com/rcarmo/go-smallsh/pkg/token"
)

// Starter creates a process for argv with the given stdin and stdout.
type Starter interface {
	Start(argv []string, in, out *os.File, foreground bool) (pid int, err error)
}

// FatalError ends the loop; the interpreter cannot go on after it.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal error: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Options configures a Shell. Zero fields fall back to the process defaults.
type Options struct {
	// Stdio.In supplies command lines; prompts and messages go to Stdio.Out.
	Stdio *core.Stdio
	// Stdin and Stdout are inherited by commands that do not redirect.
	Stdin  *os.File
	Stdout *os.File

	Config  *config.Configuration
	Logger  *slog.Logger
	Starter Starter
	Waiter  jobs.Waiter
	Flag    *mode.Flag

	// Pid replaces "$$"; os.Getpid() when zero.
	Pid int
	// Signals installs the SIGINT and SIGTSTP handlers for the duration of Run.
	Signals bool
}

// Shell is one interpreter session.
type Shell struct {
	stdio  *core.Stdio
	stdin  *os.File
	stdout *os.File
	cfg    *config.Configuration
	log    *slog.Logger

	expander *token.Expander
	starter  Starter
	jobs     *jobs.Table
	flag     *mode.Flag
	term     *terminal
	signals  bool

	last spawn.Status
}

func New(opts Options) *Shell {
	s := &Shell{
		stdio:   opts.Stdio,
		stdin:   opts.Stdin,
		stdout:  opts.Stdout,
		cfg:     opts.Config,
		log:     opts.Logger,
		starter: opts.Starter,
		flag:    opts.Flag,
		signals: opts.Signals,
	}
	if s.stdio == nil {
		s.stdio = core.DefaultStdio()
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.starter == nil {
		s.starter = &spawn.Spawner{}
	}
	if s.flag == nil {
		s.flag = &mode.Flag{}
	}
	pid := opts.Pid
	if pid == 0 {
		pid = os.Getpid()
	}
	s.expander = token.NewExpander(pid, s.cfg.MaxTokens)
	s.jobs = jobs.NewTable(opts.Waiter, s.stdin, s.stdout)
	s.term = snapshotTerminal(s.stdin)
	return s
}

// Run prompts for and executes lines until exit or end of input. It returns
// nil on a normal exit and a *FatalError when a command could not be
// started.
func (s *Shell) Run() error {
	if s.signals {
		stop := s.trapSignals()
		defer stop()
	}

	in := bufio.NewReader(s.stdio.In)
	for {
		s.stdio.Print(s.cfg.Prompt)
		line, readErr := in.ReadString('\n')
		if line != "" {
			exit, err := s.Execute(line)
			if err != nil {
				s.abandonJobs()
				return err
			}
			if exit {
				return nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			s.abandonJobs()
			return nil
		}
		if readErr != nil {
			s.abandonJobs()
			return readErr
		}
	}
}

// Execute runs one command line. exit is true after the exit builtin, which
// has already abandoned the background jobs.
func (s *Shell) Execute(line string) (exit bool, err error) {
	defer s.reap()

	words := s.expander.Split(line)
	cmd, err := compiler.Compile(words, compiler.Options{
		Stdin:          s.stdin,
		Stdout:         s.stdout,
		NullDevice:     s.cfg.NullDevice,
		ForegroundOnly: s.flag.ForegroundOnly(),
	})
	if err != nil {
		s.reportParseError(err)
		return false, nil
	}
	if cmd == nil {
		return false, nil
	}
	s.log.Debug("command.compiled",
		"argv", cmd.Args,
		"foreground", cmd.Foreground,
		"in", cmd.InPath,
		"out", cmd.OutPath,
	)

	if b, ok := builtins[cmd.Name()]; ok {
		defer cmd.Release()
		return b(s, cmd), nil
	}
	return false, s.launch(cmd)
}

func (s *Shell) reportParseError(err error) {
	s.stdio.Printf("%s: %v\n", core.Name, err)
	var pe *compiler.ParseError
	if errors.As(err, &pe) {
		attrs := []any{"kind", pe.Kind.String(), "index", pe.Index, "token", pe.Token}
		if pe.Err != nil {
			attrs = append(attrs, "error", pe.Err.Error())
		}
		s.log.Info("command.parse_error", attrs...)
	}
}

func (s *Shell) launch(cmd *compiler.Command) error {
	pid, err := s.starter.Start(cmd.Args, cmd.In, cmd.Out, cmd.Foreground)
	if err != nil {
		_ = cmd.Release()
		s.log.Error("command.start_failed", "argv", cmd.Args, "error", err.Error())
		return &FatalError{Err: err}
	}

	if !cmd.Foreground {
		s.stdio.Printf("BACKGROUND pid is [%d]\n", pid)
		s.jobs.Push(pid, cmd.In, cmd.Out)
		s.log.Info("job.started", "job_pid", pid, "argv", cmd.Args)
		return nil
	}

	st, err := spawn.Wait(pid)
	s.term.restore()
	_ = cmd.Release()
	if err != nil {
		s.log.Error("command.wait_failed", "job_pid", pid, "error", err.Error())
		return nil
	}
	s.last = st
	if st.Signaled {
		s.stdio.Printf("TERMINATED with signal %d\n", int(st.Signal))
	}
	s.log.Debug("command.finished", statusAttrs(st)...)
	return nil
}

// reap reports every background job that has terminated.
func (s *Shell) reap() {
	for _, r := range s.jobs.Poll() {
		if r.Err != nil {
			s.log.Warn("job.lost", "job_pid", r.Job.Pid, "error", r.Err.Error())
			continue
		}
		s.stdio.Printf("DONE with background process with pid [%d]: %s\n", r.Job.Pid, describe(r.Status))
		s.log.Info("job.reaped", statusAttrs(r.Status)...)
	}
}

func (s *Shell) abandonJobs() {
	for _, j := range s.jobs.DrainAll() {
		s.log.Info("job.abandoned", "job_pid", j.Pid)
	}
}

// LastStatus returns how the last foreground command ended.
func (s *Shell) LastStatus() spawn.Status { return s.last }

// Jobs returns the pids of the background jobs not yet reaped.
func (s *Shell) Jobs() []int { return s.jobs.Pids() }

func describe(st spawn.Status) string {
	if st.Signaled {
		return fmt.Sprintf("Terminated by signal %d", int(st.Signal))
	}
	return fmt.Sprintf("Exited with status %d", st.Code)
}

func statusAttrs(st spawn.Status) []any {
	if st.Signaled {
		return []any{"job_pid", st.Pid, "signal", int(st.Signal), "signal_name", procutil.SignalName(st.Signal)}
	}
	return []any{"job_pid", st.Pid, "code", st.Code}
}

// trapSignals catches SIGINT and SIGTSTP for the session. SIGINT is caught
// rather than ignored: an ignored disposition would be inherited by every
// child, while a caught one resets to the default at exec.
func (s *Shell) trapSignals() (stop func()) {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT)

	w := mode.NewWatcher(s.flag, mode.FDWriter(s.stdout.Fd()), s.cfg.Prompt, func(on bool) {
		s.log.Info("mode.toggled", "foreground_only", on)
	})
	stopWatcher := w.Start(context.Background())
	return func() {
		stopWatcher()
		signal.Stop(interrupts)
	}
}
