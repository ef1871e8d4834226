package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rcarmo/go-smallsh/pkg/config"
	"github.com/rcarmo/go-smallsh/pkg/core"
	"github.com/rcarmo/go-smallsh/pkg/core/logging"
	"github.com/rcarmo/go-smallsh/pkg/sandbox"
	"github.com/rcarmo/go-smallsh/pkg/shell"
)

// usageError is reported with ExitUsage: bad flags or a bad config file.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type rootFlags struct {
	configPath string
	logFile    string
	logLevel   string
	noColor    bool
}

func newRootCmd(stdio *core.Stdio, stdin, stdout *os.File) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   core.Name,
		Short: "A small interactive shell",
		Long: `smallsh reads one command per line:

	command [arg ...] [< infile] [> outfile] [&]

"$$" in any word becomes the shell's pid. A final '&' runs the command in
the background; SIGTSTP (Ctrl-Z) toggles foreground-only mode, in which
'&' is ignored. Builtins: exit, cd [dir], status.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd, &flags, stdio, stdin, stdout)
		},
	}
	cmd.SetIn(stdio.In)
	cmd.SetOut(stdio.Out)
	cmd.SetErr(stdio.Err)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.Flags().StringVar(&flags.configPath, "config", config.DefaultPath(), "config file path")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "write JSON diagnostics to this file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "diagnostic level: debug, info, warn or error")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored diagnostics")
	return cmd
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(fs afero.Fs, cmd *cobra.Command, flags *rootFlags) (*config.Configuration, error) {
	cfg, err := config.Load(fs, flags.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if flags.noColor {
		cfg.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, flags *rootFlags, stdio *core.Stdio, stdin, stdout *os.File) error {
	cfg, err := loadConfig(afero.NewOsFs(), cmd, flags)
	if err != nil {
		return &usageError{err: err}
	}
	if !cfg.Color {
		color.NoColor = true
	}

	if sb := cfg.SandboxConfig(); sb != nil {
		if err := sandbox.Init(sb); err != nil {
			return err
		}
		defer sandbox.Disable()
	}

	log, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return &usageError{err: err}
	}
	defer closer.Close()
	log.Info("config.loaded",
		"path", flags.configPath,
		"max_tokens", cfg.MaxTokens,
		"sandbox", sandbox.IsEnabled(),
	)

	sh := shell.New(shell.Options{
		Stdio:   stdio,
		Stdin:   stdin,
		Stdout:  stdout,
		Config:  cfg,
		Logger:  log,
		Signals: true,
	})
	return sh.Run()
}
