// Package waitq implements the kernel's FIFO wait queues. Every blocking
// point in the kernel (a mutex waiting to be unlocked, a thread waiting
// for a child to exit, a reader waiting for data) parks on one of these
// instead of a bare sync.Cond, because sync.Cond makes no wakeup-order
// guarantee and the scheduler's fairness invariant (first to sleep, first
// woken) depends on strict FIFO order.
package waitq

// Waiter_t is one parked thread's ticket on a queue. Wait blocks until
// Wake is called on this specific ticket (by Wakeup_one or Wakeup_all), or
// until Abort is called (delivering a cancellation to a blocked,
// cancellable sleep).
type Waiter_t struct {
	ch        chan struct{}
	cancelled bool
}

// Wait blocks until the ticket is woken or aborted. It returns false if
// the wait was aborted by a cancellation rather than a genuine wakeup.
func (w *Waiter_t) Wait() bool {
	<-w.ch
	return !w.cancelled
}

// Waitq_t is a FIFO queue of parked waiters, protected by the caller's own
// lock (typically the big kernel lock held by internal/sched): Enqueue,
// Wakeup_one, Wakeup_all and Remove all assume the caller already holds
// whatever lock protects the condition being waited on.
type Waitq_t struct {
	waiters []*Waiter_t
}

// Enqueue creates and appends a new waiter ticket to the tail of the
// queue.
func (q *Waitq_t) Enqueue() *Waiter_t {
	w := &Waiter_t{ch: make(chan struct{}, 1)}
	q.waiters = append(q.waiters, w)
	return w
}

// Remove drops w from the queue without waking it; used when a
// cancellable sleep is abandoned for a reason other than an explicit
// wakeup (e.g. the waiter gave up and removed itself after Wait returned
// false due to some other path). A no-op if w is not present.
func (q *Waitq_t) Remove(w *Waiter_t) {
	for i, o := range q.waiters {
		if o == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// Empty reports whether any thread is parked on the queue.
func (q *Waitq_t) Empty() bool { return len(q.waiters) == 0 }

// Len reports the number of threads parked on the queue.
func (q *Waitq_t) Len() int { return len(q.waiters) }

// Wakeup_one wakes the longest-waiting thread on the queue, if any, and
// returns whether it woke someone.
func (q *Waitq_t) Wakeup_one() bool {
	if len(q.waiters) == 0 {
		return false
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	w.ch <- struct{}{}
	return true
}

// Wakeup_all wakes every thread currently parked on the queue, in FIFO
// order, and empties it.
func (q *Waitq_t) Wakeup_all() {
	ws := q.waiters
	q.waiters = nil
	for _, w := range ws {
		w.ch <- struct{}{}
	}
}

// Abort cancels a specific waiter, used by a cancellable sleep when the
// sleeping thread has been marked doomed; Wait on this ticket then
// returns false instead of blocking forever.
func (q *Waitq_t) Abort(w *Waiter_t) {
	q.Remove(w)
	w.cancelled = true
	w.ch <- struct{}{}
}
