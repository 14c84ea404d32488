// Package thread is the kernel's thread-control-block layer: creation,
// cancellation and the notion of "the currently running thread". The
// teacher kernel answers that last question with runtime.Gptr/Setgptr, a
// per-goroutine pointer the modified Go runtime carries alongside each G;
// an unmodified runtime has no such slot. Because this kernel is
// cooperative and single-logical-CPU (internal/sched's big lock is held
// by exactly one goroutine at a time whenever kernel state is touched), a
// single package-level variable serves the same purpose without runtime
// surgery: whichever goroutine holds sched.Big is, by construction, "the
// current thread".
package thread

import (
	"weenixcore/internal/defs"
	"weenixcore/internal/sched"
)

// Tnote_t is a thread's control block: its identity, and the state a
// killer needs to doom it and a canceller needs to check before putting
// it to sleep.
type Tnote_t struct {
	Tid      defs.Tid_t
	Pid      defs.Pid_t
	alive    bool
	killed   bool
	isdoomed bool
	kerr     defs.Err_t
}

// Doomed reports whether the thread has been marked for death; sleeping
// points check this via Cancellable_sleep_on before blocking.
func (t *Tnote_t) Doomed() bool { return t.isdoomed }

// Kill marks the thread doomed with the given error, to be observed by
// its next cancellable sleep or syscall return.
func (t *Tnote_t) Kill(err defs.Err_t) {
	t.killed = true
	t.isdoomed = true
	t.kerr = err
}

// Killed reports whether Kill was ever called on this thread, and the
// error it was killed with.
func (t *Tnote_t) Killed() (bool, defs.Err_t) { return t.killed, t.kerr }

// current holds the control block of whoever holds sched.Big. It is
// valid to read or write only while holding sched.Big, same as every
// other piece of shared kernel state.
var current *Tnote_t

// Current returns the currently scheduled thread's control block. Must be
// called with sched.Big held.
func Current() *Tnote_t {
	if current == nil {
		panic("thread: no current thread")
	}
	return current
}

// CurrentOrNil is Current, but returns nil instead of panicking when no
// thread has been installed as current (e.g. a bare goroutine driving
// sched.Big directly in a test or scenario, without going through
// Kthread_create/Run_as_current). Callers that only want a best-effort
// identity for self-deadlock detection, rather than a hard requirement
// that a thread be registered, should use this instead of Current.
func CurrentOrNil() *Tnote_t { return current }

// Threadinfo tracks every live thread in the system, keyed by tid, so
// that e.g. a broadcast signal can find and doom every thread belonging
// to a killed process.
var Threadinfo = struct {
	notes map[defs.Tid_t]*Tnote_t
}{notes: make(map[defs.Tid_t]*Tnote_t)}

var nexttid defs.Tid_t = 1

// Kthread_create spawns fn as a new kernel thread belonging to pid and
// returns its tid. fn runs on its own goroutine; it must acquire
// sched.Big itself before touching kernel state and release it before
// returning, exactly as the thread that spawned it did.
func Kthread_create(pid defs.Pid_t, fn func(*Tnote_t)) defs.Tid_t {
	sched.Big.Lock()
	tid := nexttid
	nexttid++
	tn := &Tnote_t{Tid: tid, Pid: pid, alive: true}
	Threadinfo.notes[tid] = tn
	sched.Big.Unlock()

	go func() {
		sched.Big.Lock()
		prev := current
		current = tn
		sched.Big.Unlock()

		fn(tn)

		sched.Big.Lock()
		tn.alive = false
		delete(Threadinfo.notes, tid)
		current = prev
		sched.Big.Unlock()
	}()
	return tid
}

// Run_as_current runs fn synchronously on the calling goroutine with tn
// installed as the current thread, for the bootstrap thread (init/idle)
// which is not spawned via Kthread_create. Must not be called while
// another thread is already current on this goroutine.
func Run_as_current(tn *Tnote_t, fn func()) {
	sched.Big.Lock()
	if current != nil {
		sched.Big.Unlock()
		panic("thread: already running as a thread")
	}
	current = tn
	Threadinfo.notes[tn.Tid] = tn
	sched.Big.Unlock()

	fn()

	sched.Big.Lock()
	delete(Threadinfo.notes, tn.Tid)
	current = nil
	sched.Big.Unlock()
}
