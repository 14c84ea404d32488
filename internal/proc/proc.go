// Package proc implements the process table: creation, the parent/child
// tree, exit and reparenting, and wait4/waitpid reaping. It sits above
// internal/thread (each process owns a set of thread control blocks) and
// internal/vmmap/internal/fdops (each process owns an address space and a
// file-descriptor table), tying them together the way the teacher's fd
// and tinfo packages are tied together by a process struct that the
// retrieval pack did not include a source file for.
package proc

import (
	"weenixcore/internal/defs"
	"weenixcore/internal/fdops"
	"weenixcore/internal/sched"
	"weenixcore/internal/thread"
	"weenixcore/internal/vnode"
	"weenixcore/internal/waitq"
)

// State_t is a process's lifecycle state.
type State_t int

const (
	Running State_t = iota
	Dead
)

// Cwd_t tracks a process's current working directory, grounded on the
// teacher's fd.Cwd_t.
type Cwd_t struct {
	Vn *vnode.Vnode_t
}

// Vmmap_i is the portion of internal/vm/vmmap.Vmmap_t a process needs;
// declared as an interface here to avoid proc importing vmmap (vmmap in
// turn does not need to import proc, but keeping the dependency one-way
// through an interface keeps the two packages decoupled).
type Vmmap_i interface {
	Destroy()
}

// Process_t is the kernel's process control block.
type Process_t struct {
	Pid      defs.Pid_t
	Name     string
	State    State_t
	Status   int
	Parent   *Process_t
	Children []*Process_t
	Threads  []*thread.Tnote_t

	Fds [defs.NFILES]*fdops.Fd_t
	Cwd *Cwd_t
	Vm  Vmmap_i

	waitq waitq.Waitq_t

	liveThreads int
}

var (
	table      = map[defs.Pid_t]*Process_t{}
	nextpid    defs.Pid_t = defs.PID_IDLE
	Idle       *Process_t
	Init       *Process_t
)

// Proc_create allocates a process named name, parented to current (nil
// only for the idle process; init is created with idle as its parent), assigns the next free
// pid by linear probe with wrap, and links it into the global table and
// its parent's child list. The caller must hold sched.Big.
func Proc_create(name string, current *Process_t) *Process_t {
	pid := allocpid()
	p := &Process_t{
		Pid:    pid,
		Name:   name,
		State:  Running,
		Status: 0,
		Parent: current,
	}
	table[pid] = p
	if current != nil {
		current.Children = append(current.Children, p)
	}
	return p
}

func allocpid() defs.Pid_t {
	for i := 0; i < defs.PROC_MAX_COUNT; i++ {
		pid := nextpid
		nextpid++
		if nextpid >= defs.PROC_MAX_COUNT {
			nextpid = defs.PID_IDLE + 1
		}
		if _, taken := table[pid]; !taken {
			return pid
		}
	}
	panic("proc: process table exhausted")
}

// Lookup returns the process with the given pid, or nil.
func Lookup(pid defs.Pid_t) *Process_t { return table[pid] }

// FdSlot, SetFdSlot, CwdVnode and SetCwdVnode let internal/vfs operate on
// a process's fd table and working directory without importing proc
// directly (see vfs.Proc_i).
func (p *Process_t) FdSlot(i int) *fdops.Fd_t     { return p.Fds[i] }
func (p *Process_t) SetFdSlot(i int, fd *fdops.Fd_t) { p.Fds[i] = fd }

func (p *Process_t) CwdVnode() *vnode.Vnode_t {
	if p.Cwd == nil {
		return nil
	}
	return p.Cwd.Vn
}

func (p *Process_t) SetCwdVnode(vn *vnode.Vnode_t) {
	if p.Cwd == nil {
		p.Cwd = &Cwd_t{}
	}
	p.Cwd.Vn = vn
}

// AddThread registers tn as belonging to p and counts it among p's live
// threads.
func (p *Process_t) AddThread(tn *thread.Tnote_t) {
	p.Threads = append(p.Threads, tn)
	p.liveThreads++
}

// Thread_exited records that one of p's threads has run to completion,
// with exit status status. When the last thread of the process exits, the
// process is cleaned up via cleanup. Matches the teacher-adjacent
// proc_thread_exited/proc_cleanup split described by the scheduler
// design: a process becomes a reapable zombie only once every one of its
// threads has actually stopped running.
func (p *Process_t) Thread_exited(status int) {
	p.liveThreads--
	if p.liveThreads < 0 {
		panic("proc: thread exited more times than it was created")
	}
	if p.liveThreads == 0 {
		p.cleanup(status)
	}
}

// cleanup closes every open fd, reparents living children to init, wakes
// the parent (who may be blocked in do_waitpid), and marks the process
// Dead. The address space and thread control blocks are left for the
// parent's reap to free, matching proc_cleanup's documented contract.
func (p *Process_t) cleanup(status int) {
	for i, fd := range p.Fds {
		if fd != nil {
			fdops.Close_panic(fd)
			p.Fds[i] = nil
		}
	}
	if p != Init && p.Parent != nil {
		for _, c := range p.Children {
			c.Parent = Init
			Init.Children = append(Init.Children, c)
		}
	}
	p.Children = nil
	p.State = Dead
	p.Status = status
	if p.Parent != nil {
		sched.Wakeup_all(&p.Parent.waitq)
	}
}

// reap frees everything cleanup left for the parent's reap to release:
// the address space (and every mmobj it still pins), the control blocks
// of the process's now-exited threads, and the cwd vnode reference.
// Called by Do_waitpid once a Dead child has been detached from the
// table; the caller must hold sched.Big.
func (p *Process_t) reap() {
	if p.Vm != nil {
		p.Vm.Destroy()
	}
	p.Threads = nil
	if p.Cwd != nil && p.Cwd.Vn != nil {
		vnode.Vput(p.Cwd.Vn)
		p.Cwd.Vn = nil
	}
}

// Do_waitpid implements waitpid/wait4: the calling process (current)
// blocks until a Dead child matching pid (pid == -1 matches any child)
// appears, then detaches, frees, and returns it. The caller must hold
// sched.Big across the call; it is released while sleeping and reacquired
// on wake, as with every blocking kernel primitive here.
func Do_waitpid(current *Process_t, pid defs.Pid_t, doomed func() bool) (defs.Pid_t, int, defs.Err_t) {
	if len(current.Children) == 0 {
		return 0, 0, -defs.ECHILD
	}
	if pid > 0 {
		found := false
		for _, c := range current.Children {
			if c.Pid == pid {
				found = true
				break
			}
		}
		if !found {
			return 0, 0, -defs.ECHILD
		}
	}
	for {
		for i, c := range current.Children {
			if (pid == -1 || c.Pid == pid) && c.State == Dead {
				current.Children = append(current.Children[:i:i], current.Children[i+1:]...)
				delete(table, c.Pid)
				c.reap()
				return c.Pid, c.Status, 0
			}
		}
		if doomed != nil && !sched.Cancellable_sleep_on(&current.waitq, doomed) {
			return 0, 0, -defs.EINTR
		}
		if doomed == nil {
			sched.Sleep_on(&current.waitq)
		}
	}
}

// Do_exit stores status on the calling process. It does not end the
// calling thread and does not call Thread_exited; the caller does that.
func Do_exit(current *Process_t, status int) {
	current.Status = status
}

// Kill marks every thread belonging to p as doomed with -EINTR, the
// proc_kill rule for a target other than the current process (current
// should call Do_exit directly instead).
func Kill(p *Process_t) {
	for _, tn := range p.Threads {
		tn.Kill(-defs.EINTR)
	}
}

// Kill_all kills every process except idle, init, current, and direct
// children of idle; then kills current too, unless current is itself
// idle, init, or a direct child of idle.
func Kill_all(current *Process_t) {
	childOfIdle := func(p *Process_t) bool {
		for _, c := range Idle.Children {
			if c == p {
				return true
			}
		}
		return false
	}

	spared := map[defs.Pid_t]bool{Idle.Pid: true, Init.Pid: true, current.Pid: true}
	for _, c := range Idle.Children {
		spared[c.Pid] = true
	}
	for pid, p := range table {
		if !spared[pid] {
			Kill(p)
		}
	}
	if current != Idle && current != Init && !childOfIdle(current) {
		Kill(current)
	}
}
