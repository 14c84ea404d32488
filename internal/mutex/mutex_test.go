package mutex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weenixcore/internal/sched"
	"weenixcore/internal/thread"
)

func TestMutex_TryLock(t *testing.T) {
	var m Mutex_t
	assert.False(t, m.Held())
	assert.True(t, m.TryLock())
	assert.True(t, m.Held())
	assert.False(t, m.TryLock(), "a second TryLock while held must fail")

	sched.Big.Lock()
	m.Unlock()
	sched.Big.Unlock()
	assert.False(t, m.Held())
}

func TestMutex_UnlockOfUnlockedPanics(t *testing.T) {
	var m Mutex_t
	assert.Panics(t, func() { m.Unlock() })
}

func TestMutex_LockBlocksUntilUnlock(t *testing.T) {
	var m Mutex_t
	require.True(t, m.TryLock())

	acquired := make(chan struct{})
	go func() {
		sched.Big.Lock()
		m.Lock()
		close(acquired)
		m.Unlock()
		sched.Big.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("Lock returned before the holder released the mutex")
	default:
	}

	sched.Big.Lock()
	m.Unlock()
	sched.Big.Unlock()

	<-acquired
}

// TestMutex_FIFOFairness pins enqueue order by handing sched.Big to one
// contender at a time until it is parked on the mutex's wait queue, then
// confirms Unlock wakes contenders in exactly that order.
func TestMutex_FIFOFairness(t *testing.T) {
	const n = 5
	var m Mutex_t
	order := make(chan int, n)
	registered := make(chan struct{})

	sched.Big.Lock()
	m.Lock()
	sched.Big.Unlock()

	for i := 0; i < n; i++ {
		i := i
		go func() {
			sched.Big.Lock()
			registered <- struct{}{}
			m.Lock()
			order <- i
			m.Unlock()
			sched.Big.Unlock()
		}()
		<-registered
	}

	sched.Big.Lock()
	m.Unlock()
	sched.Big.Unlock()

	got := make([]int, n)
	for i := 0; i < n; i++ {
		got[i] = <-order
	}
	for i, v := range got {
		assert.Equal(t, i, v, "acquire order %v must be strictly ascending", got)
	}
}

// TestMutex_UnlockHandsOffDirectlyNoBarging pins a waiter on the queue,
// then races a fresh Lock call against the woken waiter's resumption: the
// fresh caller must still queue up behind the already-parked waiter
// rather than acquiring the freshly "unlocked" mutex first.
func TestMutex_UnlockHandsOffDirectlyNoBarging(t *testing.T) {
	var m Mutex_t
	acquired := make(chan int, 2)
	parked := make(chan struct{})

	sched.Big.Lock()
	m.Lock()
	sched.Big.Unlock()

	go func() {
		sched.Big.Lock()
		close(parked)
		m.Lock() // the first waiter: enqueues and blocks here
		acquired <- 1
		m.Unlock()
		sched.Big.Unlock()
	}()
	<-parked

	sched.Big.Lock()
	require.Equal(t, 1, m.q.Len(), "the first waiter must be parked on the queue before Unlock")
	m.Unlock()
	// A second, fresh Lock call lands here, "after" Unlock returned. If
	// Unlock had cleared held before the first waiter resumed, this call
	// would barge in and acquire the mutex immediately instead of
	// queueing behind the already-parked waiter.
	assert.True(t, m.Held(), "held must still be true: ownership was handed to the parked waiter, not released")
	sched.Big.Unlock()

	go func() {
		sched.Big.Lock()
		m.Lock()
		acquired <- 2
		m.Unlock()
		sched.Big.Unlock()
	}()

	first := <-acquired
	second := <-acquired
	assert.Equal(t, 1, first, "the already-parked waiter must acquire before the later caller")
	assert.Equal(t, 2, second)
}

func TestMutex_LockBySameThreadPanics(t *testing.T) {
	tn := &thread.Tnote_t{Tid: 1}
	var called bool
	thread.Run_as_current(tn, func() {
		var m Mutex_t
		sched.Big.Lock()
		m.Lock()
		assert.Panics(t, func() { m.Lock() })
		m.Unlock()
		sched.Big.Unlock()
		called = true
	})
	assert.True(t, called)
}
