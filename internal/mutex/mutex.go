// Package mutex implements the kernel's sleeping mutex: a lock for code
// paths that must block (potentially for a long time, e.g. behind disk
// I/O) rather than spin, built on top of the big kernel lock's wait
// queues instead of a bare sync.Mutex so that lock acquisition participates
// in the same strict-FIFO fairness as every other blocking point.
package mutex

import (
	"weenixcore/internal/sched"
	"weenixcore/internal/thread"
	"weenixcore/internal/waitq"
)

// Mutex_t is a sleeping mutex. The zero value is unlocked and ready to
// use. All methods assume the caller holds sched.Big, matching every
// other blocking primitive in this kernel. Unlock transfers ownership
// directly to the former head of the wait queue rather than simply
// freeing the lock and waking someone: held stays true across the
// handoff, so there is never a window in which a thread calling Lock
// can barge ahead of whoever was already queued.
type Mutex_t struct {
	held   bool
	holder *thread.Tnote_t
	q      waitq.Waitq_t
}

func (m *Mutex_t) assertNotSelf() {
	if cur := thread.CurrentOrNil(); cur != nil && m.held && m.holder == cur {
		panic("mutex: Lock called by the thread already holding it")
	}
}

// Lock blocks until the mutex is free, then acquires it.
func (m *Mutex_t) Lock() {
	m.assertNotSelf()
	if m.held {
		sched.Sleep_on(&m.q)
		// Woken by a direct handoff from Unlock: held was never
		// cleared, so we already own the mutex and only need to
		// record ourselves as the holder.
		m.holder = thread.CurrentOrNil()
		return
	}
	m.held = true
	m.holder = thread.CurrentOrNil()
}

// Lock_cancellable is Lock, but returns false without acquiring the lock
// if the calling thread is already doomed or its cancellable sleep is
// aborted (see sched.Cancellable_sleep_on); it returns true once the lock
// is held. doomed reports whether the calling thread has been marked for
// death.
func (m *Mutex_t) Lock_cancellable(doomed func() bool) bool {
	m.assertNotSelf()
	if m.held {
		if !sched.Cancellable_sleep_on(&m.q, doomed) {
			return false
		}
		m.holder = thread.CurrentOrNil()
		return true
	}
	m.held = true
	m.holder = thread.CurrentOrNil()
	return true
}

// TryLock acquires the mutex only if it is currently free, without
// blocking.
func (m *Mutex_t) TryLock() bool {
	if m.held {
		return false
	}
	m.held = true
	m.holder = thread.CurrentOrNil()
	return true
}

// Unlock releases the mutex, handing it directly to the longest-waiting
// thread blocked on Lock if there is one (held stays true and the waiter
// records itself as holder upon waking), or freeing it if the queue is
// empty. Unlock of an unlocked mutex is a kernel bug.
func (m *Mutex_t) Unlock() {
	if !m.held {
		panic("mutex: unlock of unlocked mutex")
	}
	if !m.q.Wakeup_one() {
		m.held = false
		m.holder = nil
	}
}

// Held reports whether the mutex is currently locked, for assertions
// (e.g. "the caller must hold this lock") rather than for synchronization
// decisions.
func (m *Mutex_t) Held() bool { return m.held }
