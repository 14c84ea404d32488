package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"weenixcore/internal/waitq"
)

func TestBiglock_LockUnlockRoundTrip(t *testing.T) {
	Big.Lock()
	assert.NotPanics(t, func() { Big.Unlock() })
}

func TestBiglock_UnlockOfUnlockedPanics(t *testing.T) {
	Big.Lock()
	Big.Unlock()
	assert.Panics(t, func() { Big.Unlock() })
	Big.Lock()
	Big.Unlock()
}

func TestSwitch_ReacquiresBigBeforeReturning(t *testing.T) {
	Big.Lock()
	Switch()
	assert.NotPanics(t, func() { Big.Unlock() })
}

func TestSleepOn_WakesOnWakeupOne(t *testing.T) {
	var q waitq.Waitq_t
	var wg sync.WaitGroup
	woke := false

	Big.Lock()
	wg.Add(1)
	go func() {
		defer wg.Done()
		Big.Lock()
		Sleep_on(&q)
		woke = true
		Big.Unlock()
	}()

	time.Sleep(20 * time.Millisecond)
	Wakeup_one(&q)
	Big.Unlock()
	wg.Wait()
	assert.True(t, woke)
}

func TestCancellableSleepOn_DoomedReturnsFalseImmediately(t *testing.T) {
	var q waitq.Waitq_t
	Big.Lock()
	ok := Cancellable_sleep_on(&q, func() bool { return true })
	Big.Unlock()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}
