// Package procutil names the signals and wait dispositions reported for
// child processes.
package procutil

import (
	"strconv"
	"syscall"
)

var signalNames = map[syscall.Signal]string{
	syscall.SIGHUP:  "HUP",
	syscall.SIGINT:  "INT",
	syscall.SIGQUIT: "QUIT",
	syscall.SIGILL:  "ILL",
	syscall.SIGTRAP: "TRAP",
	syscall.SIGABRT: "ABRT",
	syscall.SIGBUS:  "BUS",
	syscall.SIGFPE:  "FPE",
	syscall.SIGKILL: "KILL",
	syscall.SIGUSR1: "USR1",
	syscall.SIGSEGV: "SEGV",
	syscall.SIGUSR2: "USR2",
	syscall.SIGPIPE: "PIPE",
	syscall.SIGALRM: "ALRM",
	syscall.SIGTERM: "TERM",
	syscall.SIGCHLD: "CHLD",
	syscall.SIGCONT: "CONT",
	syscall.SIGSTOP: "STOP",
	syscall.SIGTSTP: "TSTP",
	syscall.SIGTTIN: "TTIN",
	syscall.SIGTTOU: "TTOU",
}

// SignalName returns the short name of sig ("KILL" for 9), or its number
// when the signal has no entry.
func SignalName(sig syscall.Signal) string {
	if name, ok := signalNames[sig]; ok {
		return name
	}
	return strconv.Itoa(int(sig))
}
