// Package mode holds the foreground-only flag and the signal watcher that
// toggles it.
package mode

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Flag is the foreground-only switch. The zero value is off.
type Flag struct {
	on atomic.Bool
}

// ForegroundOnly reports whether '&' is currently ignored.
func (f *Flag) ForegroundOnly() bool { return f.on.Load() }

// Toggle flips the flag and returns the new value.
func (f *Flag) Toggle() bool {
	for {
		old := f.on.Load()
		if f.on.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Banner texts, without the trailing prompt.
const (
	enterText = "\nEntering foreground-only mode (& is now ignored)\n"
	exitText  = "\nExiting foreground-only mode\n"
)

// Banner returns what is printed when the flag becomes on, followed by the
// prompt so the user can keep typing.
func Banner(on bool, prompt string) string {
	if on {
		return enterText + prompt
	}
	return exitText + prompt
}

// FDWriter writes straight to a file descriptor with write(2), bypassing any
// buffering or locking in os.File.
type FDWriter int

func (w FDWriter) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := unix.Write(int(w), p[n:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return n, err
		}
		n += m
	}
	return n, nil
}

// Watcher toggles a Flag on every received signal and prints the banner for
// the new state.
type Watcher struct {
	flag     *Flag
	out      io.Writer
	enter    []byte
	exit     []byte
	onToggle func(on bool)
}

// NewWatcher prepares the banners for prompt. onToggle, if not nil, runs after
// each banner is written.
func NewWatcher(flag *Flag, out io.Writer, prompt string, onToggle func(on bool)) *Watcher {
	return &Watcher{
		flag:     flag,
		out:      out,
		enter:    []byte(Banner(true, prompt)),
		exit:     []byte(Banner(false, prompt)),
		onToggle: onToggle,
	}
}

// Run handles signals from sigs until ctx is done or sigs is closed.
func (w *Watcher) Run(ctx context.Context, sigs <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sigs:
			if !ok {
				return
			}
			w.handle()
		}
	}
}

func (w *Watcher) handle() {
	on := w.flag.Toggle()
	banner := w.exit
	if on {
		banner = w.enter
	}
	_, _ = w.out.Write(banner)
	if w.onToggle != nil {
		w.onToggle(on)
	}
}

// Start routes SIGTSTP to w on a new goroutine. The returned function stops
// delivery and waits for the goroutine to finish.
func (w *Watcher) Start(ctx context.Context) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTSTP)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, sigs)
	}()
	return func() {
		signal.Stop(sigs)
		cancel()
		<-done
	}
}
