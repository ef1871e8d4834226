// Package jobs tracks background processes until they are reaped.
package jobs

import (
	"errors"
	"os"
	"slices"

	"github.com/rcarmo/go-smallsh/pkg/spawn"
)

// Waiter checks a pid without blocking.
type Waiter interface {
	Poll(pid int) (st spawn.Status, done bool, err error)
}

// WaiterFunc adapts a function to Waiter.
type WaiterFunc func(pid int) (spawn.Status, bool, error)

func (f WaiterFunc) Poll(pid int) (spawn.Status, bool, error) { return f(pid) }

// SystemWaiter polls real child processes.
var SystemWaiter Waiter = WaiterFunc(spawn.Poll)

// Job is a background process and the descriptors it was started with.
type Job struct {
	Pid int
	In  *os.File
	Out *os.File
}

// Reaped describes a job that left the table. Err is set when the job was
// dropped because it could not be waited for; Status is then meaningless.
type Reaped struct {
	Job    Job
	Status spawn.Status
	Err    error
}

// Table holds background jobs in the order they were started. It is not safe
// for concurrent use.
type Table struct {
	jobs   []Job
	waiter Waiter
	keep   []*os.File
}

// NewTable returns an empty table. Files in keep (the interpreter's own
// standard streams) are never closed when a job is released.
func NewTable(w Waiter, keep ...*os.File) *Table {
	if w == nil {
		w = SystemWaiter
	}
	return &Table{waiter: w, keep: keep}
}

// Push registers a started background process.
func (t *Table) Push(pid int, in, out *os.File) {
	t.jobs = append(t.jobs, Job{Pid: pid, In: in, Out: out})
}

// Len returns the number of outstanding jobs.
func (t *Table) Len() int { return len(t.jobs) }

// Pids returns the pids of outstanding jobs in start order.
func (t *Table) Pids() []int {
	pids := make([]int, len(t.jobs))
	for i, j := range t.jobs {
		pids[i] = j.Pid
	}
	return pids
}

// ReapOne polls each job once, in start order, and removes the first one that
// has terminated. ok is false when no job is ready.
func (t *Table) ReapOne() (r Reaped, ok bool) {
	for i, j := range t.jobs {
		st, done, err := t.waiter.Poll(j.Pid)
		if err == nil && !done {
			continue
		}
		t.jobs = slices.Delete(t.jobs, i, i+1)
		_ = t.release(j)
		return Reaped{Job: j, Status: st, Err: err}, true
	}
	return Reaped{}, false
}

// Poll reaps every job that has terminated so far.
func (t *Table) Poll() []Reaped {
	var out []Reaped
	for {
		r, ok := t.ReapOne()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// DrainAll forgets every job without waiting for it and releases its
// descriptors. It returns the abandoned jobs.
func (t *Table) DrainAll() []Job {
	jobs := t.jobs
	t.jobs = nil
	for _, j := range jobs {
		_ = t.release(j)
	}
	return jobs
}

func (t *Table) release(j Job) error {
	var errs []error
	for _, f := range []*os.File{j.In, j.Out} {
		if f == nil || slices.Contains(t.keep, f) {
			continue
		}
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
