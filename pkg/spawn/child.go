package spawn

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/rcarmo/go-smallsh/pkg/core"
)

// argv[0] values under which the binary acts as the exec helper.
const (
	helperForeground = "smallsh-exec-fg"
	helperBackground = "smallsh-exec-bg"
)

// Init must be the first call in main (and in TestMain of packages that
// spawn commands). When the process was started as the exec helper it sets
// up the child's signal dispositions and replaces itself with the target
// program; it only returns when the process is an ordinary interpreter.
func Init() {
	var foreground bool
	switch filepath.Base(os.Args[0]) {
	case helperForeground:
		foreground = true
	case helperBackground:
	default:
		return
	}
	os.Exit(runChild(os.Args[1:], foreground, os.Stderr))
}

// runChild only returns if the exec fails.
func runChild(argv []string, foreground bool, stderr io.Writer) int {
	// SIG_IGN survives execve, so the target starts with these ignored.
	signal.Ignore(syscall.SIGTSTP)
	if foreground {
		signal.Reset(syscall.SIGINT)
	} else {
		signal.Ignore(syscall.SIGINT)
	}

	if len(argv) == 0 {
		return reportExec(stderr, errors.New("missing command"))
	}
	path, err := exec.LookPath(argv[0])
	if errors.Is(err, exec.ErrDot) {
		err = nil
	}
	if err != nil {
		return reportExec(stderr, err)
	}
	err = unix.Exec(path, argv, os.Environ())
	return reportExec(stderr, &os.PathError{Op: "exec", Path: path, Err: err})
}

func reportExec(w io.Writer, err error) int {
	color.New(color.FgRed).Fprintf(w, "%s: exec: %v\n", core.Name, err)
	return core.ExitFailure
}
