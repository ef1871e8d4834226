package jobs_test

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-smallsh/pkg/jobs"
	"github.com/rcarmo/go-smallsh/pkg/spawn"
	"github.com/rcarmo/go-smallsh/pkg/testutil"
)

func TestMain(m *testing.M) {
	spawn.Init()
	os.Exit(m.Run())
}

// fakeWaiter reports the statuses in finished and counts polls per pid.
type fakeWaiter struct {
	finished map[int]spawn.Status
	errs     map[int]error
	polls    map[int]int
}

func newFakeWaiter() *fakeWaiter {
	return &fakeWaiter{
		finished: map[int]spawn.Status{},
		errs:     map[int]error{},
		polls:    map[int]int{},
	}
}

func (w *fakeWaiter) Poll(pid int) (spawn.Status, bool, error) {
	w.polls[pid]++
	if err, ok := w.errs[pid]; ok {
		return spawn.Status{Pid: pid}, false, err
	}
	st, ok := w.finished[pid]
	if !ok {
		return spawn.Status{Pid: pid}, false, nil
	}
	delete(w.finished, pid)
	return st, true, nil
}

func TestReapOneNoneReady(t *testing.T) {
	w := newFakeWaiter()
	table := jobs.NewTable(w)
	table.Push(10, nil, nil)
	table.Push(11, nil, nil)

	_, ok := table.ReapOne()

	assert.False(t, ok)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, map[int]int{10: 1, 11: 1}, w.polls)
}

func TestReapOneRemovesFirstTerminated(t *testing.T) {
	w := newFakeWaiter()
	table := jobs.NewTable(w)
	table.Push(10, nil, nil)
	table.Push(11, nil, nil)
	table.Push(12, nil, nil)
	w.finished[11] = spawn.Status{Pid: 11, Code: 2}
	w.finished[12] = spawn.Status{Pid: 12, Signaled: true, Signal: syscall.SIGTERM}

	r, ok := table.ReapOne()

	require.True(t, ok)
	assert.Equal(t, 11, r.Job.Pid)
	assert.Equal(t, 2, r.Status.Code)
	assert.NoError(t, r.Err)
	assert.Equal(t, []int{10, 12}, table.Pids())
	assert.Zero(t, w.polls[12], "scan stops at the first terminated job")
}

func TestPollReapsEachJobOnce(t *testing.T) {
	w := newFakeWaiter()
	table := jobs.NewTable(w)
	table.Push(10, nil, nil)
	table.Push(11, nil, nil)
	table.Push(12, nil, nil)
	w.finished[10] = spawn.Status{Pid: 10}
	w.finished[12] = spawn.Status{Pid: 12, Signaled: true, Signal: syscall.SIGKILL}

	reaped := table.Poll()

	require.Len(t, reaped, 2)
	assert.Equal(t, 10, reaped[0].Job.Pid)
	assert.Equal(t, 12, reaped[1].Job.Pid)
	assert.True(t, reaped[1].Status.Signaled)
	assert.Equal(t, []int{11}, table.Pids())

	assert.Empty(t, table.Poll(), "a reaped job must not be reported again")
	assert.Equal(t, []int{11}, table.Pids())
}

func TestReapDropsJobThatCannotBeWaited(t *testing.T) {
	w := newFakeWaiter()
	table := jobs.NewTable(w)
	table.Push(10, nil, nil)
	w.errs[10] = spawn.ErrNotChild

	r, ok := table.ReapOne()

	require.True(t, ok)
	assert.Equal(t, 10, r.Job.Pid)
	assert.ErrorIs(t, r.Err, spawn.ErrNotChild)
	assert.Zero(t, table.Len())
}

func TestReapReleasesDescriptorsButKeepsStandardStreams(t *testing.T) {
	w := newFakeWaiter()
	stdin := testutil.NullInput(t)
	stdout := testutil.OutputFile(t)
	table := jobs.NewTable(w, stdin, stdout)

	in := testutil.NullInput(t)
	table.Push(10, in, stdout)
	null, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	table.Push(11, stdin, null)
	w.finished[10] = spawn.Status{Pid: 10}
	w.finished[11] = spawn.Status{Pid: 11}

	require.Len(t, table.Poll(), 2)

	_, err = in.Stat()
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = null.Stat()
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = stdin.Stat()
	assert.NoError(t, err)
	_, err = stdout.Stat()
	assert.NoError(t, err)
}

func TestDrainAll(t *testing.T) {
	w := newFakeWaiter()
	stdout := testutil.OutputFile(t)
	table := jobs.NewTable(w, stdout)
	in := testutil.NullInput(t)
	table.Push(10, in, stdout)
	table.Push(11, nil, nil)

	drained := table.DrainAll()

	require.Len(t, drained, 2)
	assert.Equal(t, 10, drained[0].Pid)
	assert.Zero(t, table.Len())
	assert.Empty(t, w.polls, "drain must not wait")
	_, err := in.Stat()
	assert.ErrorIs(t, err, os.ErrClosed)
	_, err = stdout.Stat()
	assert.NoError(t, err)
}

func TestWaiterFunc(t *testing.T) {
	var got int
	w := jobs.WaiterFunc(func(pid int) (spawn.Status, bool, error) {
		got = pid
		return spawn.Status{Pid: pid, Code: 7}, true, nil
	})
	table := jobs.NewTable(w)
	table.Push(42, nil, nil)

	r, ok := table.ReapOne()

	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.Equal(t, 7, r.Status.Code)
}

func TestSystemWaiterReapsRealProcess(t *testing.T) {
	s := &spawn.Spawner{}
	in := testutil.NullInput(t)
	out, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	pid, err := s.Start([]string{"sh", "-c", "exit 5"}, in, out, false)
	require.NoError(t, err)

	table := jobs.NewTable(nil)
	table.Push(pid, in, out)

	var reaped []jobs.Reaped
	require.Eventually(t, func() bool {
		reaped = append(reaped, table.Poll()...)
		return table.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, reaped, 1)
	assert.Equal(t, pid, reaped[0].Job.Pid)
	assert.Equal(t, 5, reaped[0].Status.Code)
	assert.Empty(t, table.Poll())
}
