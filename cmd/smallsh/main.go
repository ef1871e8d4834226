// Command smallsh is a small interactive shell with background jobs,
// redirection and a foreground-only mode toggled by SIGTSTP.
package main

import (
	"errors"
	"os"

	"github.com/fatih/color"

	"github.com/rcarmo/go-smallsh/pkg/core"
	"github.com/rcarmo/go-smallsh/pkg/shell"
	"github.com/rcarmo/go-smallsh/pkg/spawn"
)

func main() {
	// Returns only when this process is not an exec helper.
	spawn.Init()

	stdio := core.DefaultStdio()
	os.Exit(execute(os.Args[1:], stdio, os.Stdin, os.Stdout))
}

// execute runs the root command and maps its outcome to an exit status.
func execute(args []string, stdio *core.Stdio, stdin, stdout *os.File) int {
	root := newRootCmd(stdio, stdin, stdout)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return core.ExitSuccess
	}

	var fatal *shell.FatalError
	var usage *usageError
	switch {
	case errors.As(err, &fatal):
		color.New(color.FgRed, color.Bold).Fprintf(stdio.Err, "%s: %v\n", core.Name, fatal)
		return core.ExitFailure
	case errors.As(err, &usage):
		return core.UsageError(stdio, usage.Error())
	default:
		stdio.Errorf("%s: %v\n", core.Name, err)
		return core.ExitFailure
	}
}
