package spawn

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrNotChild is returned when pid is not (or no longer) a child of this
// process, for example because it was already reaped.
var ErrNotChild = errors.New("not a child process")

// Status is how a child terminated: an exit code or a terminating signal.
type Status struct {
	Pid      int
	Code     int
	Signaled bool
	Signal   syscall.Signal
}

func (s Status) String() string {
	if s.Signaled {
		return fmt.Sprintf("terminated by signal %d", int(s.Signal))
	}
	return fmt.Sprintf("exited with status %d", s.Code)
}

func statusOf(pid int, ws unix.WaitStatus) Status {
	if ws.Signaled() {
		return Status{Pid: pid, Signaled: true, Signal: ws.Signal()}
	}
	return Status{Pid: pid, Code: ws.ExitStatus()}
}

// Wait blocks until pid exits or is killed by a signal.
func Wait(pid int) (Status, error) {
	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return Status{Pid: pid}, ErrNotChild
		case err != nil:
			return Status{Pid: pid}, err
		}
		if wpid == pid && (ws.Exited() || ws.Signaled()) {
			return statusOf(pid, ws), nil
		}
	}
}

// Poll checks pid without blocking. done is false while the process is
// still running.
func Poll(pid int) (st Status, done bool, err error) {
	var ws unix.WaitStatus
	var wpid int
	for {
		wpid, err = unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	switch {
	case errors.Is(err, unix.ECHILD):
		return Status{Pid: pid}, false, ErrNotChild
	case err != nil:
		return Status{Pid: pid}, false, err
	}
	// A zero wpid means the child has not changed state yet.
	if wpid == 0 || (!ws.Exited() && !ws.Signaled()) {
		return Status{Pid: pid}, false, nil
	}
	return statusOf(pid, ws), true, nil
}
