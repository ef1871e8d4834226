package mode_test

import (
	"context"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-smallsh/pkg/mode"
)

// chanWriter forwards each write to a channel.
type chanWriter chan string

func (c chanWriter) Write(p []byte) (int, error) {
	c <- string(p)
	return len(p), nil
}

func receive(t *testing.T, c chanWriter) string {
	t.Helper()
	select {
	case s := <-c:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no banner written")
		return ""
	}
}

func TestFlagToggle(t *testing.T) {
	var f mode.Flag
	assert.False(t, f.ForegroundOnly())

	assert.True(t, f.Toggle())
	assert.True(t, f.ForegroundOnly())

	assert.False(t, f.Toggle())
	assert.False(t, f.ForegroundOnly())
}

func TestBanner(t *testing.T) {
	assert.Equal(t, "\nEntering foreground-only mode (& is now ignored)\n: ", mode.Banner(true, ": "))
	assert.Equal(t, "\nExiting foreground-only mode\n: ", mode.Banner(false, ": "))
	assert.Equal(t, "\nExiting foreground-only mode\n$ ", mode.Banner(false, "$ "))
}

func TestWatcherTogglesTwice(t *testing.T) {
	var f mode.Flag
	out := make(chanWriter, 4)
	var toggles []bool
	w := mode.NewWatcher(&f, out, ": ", func(on bool) { toggles = append(toggles, on) })

	sigs := make(chan os.Signal, 2)
	sigs <- syscall.SIGTSTP
	sigs <- syscall.SIGTSTP
	close(sigs)
	w.Run(context.Background(), sigs)

	assert.False(t, f.ForegroundOnly(), "two toggles restore the initial value")
	assert.Equal(t, mode.Banner(true, ": "), receive(t, out))
	assert.Equal(t, mode.Banner(false, ": "), receive(t, out))
	assert.Empty(t, out, "exactly one banner per toggle")
	assert.Equal(t, []bool{true, false}, toggles)
}

func TestWatcherStopsOnCancel(t *testing.T) {
	var f mode.Flag
	w := mode.NewWatcher(&f, io.Discard, ": ", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx, make(chan os.Signal))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.False(t, f.ForegroundOnly())
}

func TestWatcherReceivesRealSignal(t *testing.T) {
	var f mode.Flag
	out := make(chanWriter, 4)
	w := mode.NewWatcher(&f, out, ": ", nil)
	stop := w.Start(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTSTP))
	assert.Equal(t, mode.Banner(true, ": "), receive(t, out))
	assert.True(t, f.ForegroundOnly())

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTSTP))
	assert.Equal(t, mode.Banner(false, ": "), receive(t, out))
	assert.False(t, f.ForegroundOnly())
}

func TestFDWriter(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	n, err := mode.FDWriter(w.Fd()).Write([]byte("banner"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	buf := make([]byte, 16)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "banner", string(buf[:n]))
}
