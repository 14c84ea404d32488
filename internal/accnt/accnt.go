// Package accnt accumulates per-process CPU usage and exports it both as a
// raw rusage-shaped byte buffer (for copying to userspace) and as a pprof
// CPU profile (for tooling that wants to reason about where time went
// across the whole process tree).
package accnt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"

	"weenixcore/internal/util"
)

// Accnt_t accumulates per-process accounting information. Both Userns and
// Sysns store runtime in nanoseconds. The embedded mutex lets callers take
// a consistent snapshot of the fields when exporting usage statistics.
type Accnt_t struct {
	Userns int64
	Sysns  int64
	sync.Mutex
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

// Now returns the current time in nanoseconds.
func (a *Accnt_t) Now() int {
	return int(time.Now().UnixNano())
}

// Io_time removes time spent waiting for I/O from system time.
func (a *Accnt_t) Io_time(since int) {
	a.Systadd(-(a.Now() - since))
}

// Sleep_time removes time spent sleeping from system time.
func (a *Accnt_t) Sleep_time(since int) {
	a.Systadd(-(a.Now() - since))
}

// Finish finalizes accounting by adding time since inttime to system time.
func (a *Accnt_t) Finish(inttime int) {
	a.Systadd(a.Now() - inttime)
}

// Add merges another accounting record into this one.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
	a.Unlock()
}

// Fetch returns a snapshot of the accounting information encoded as rusage.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.to_rusage()
	a.Unlock()
	return ru
}

func (a *Accnt_t) to_rusage() []uint8 {
	words := 4
	ret := make([]uint8, words*8)
	totv := func(nano int64) (int, int) {
		secs := int(nano / 1e9)
		usecs := int((nano % 1e9) / 1000)
		return secs, usecs
	}
	off := 0
	s, us := totv(a.Userns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	s, us = totv(a.Sysns)
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	return ret
}

// Pprof builds a minimal pprof CPU profile from this record's user/sys
// nanosecond totals, labeled with name (typically the owning process's
// command name and pid). It is meant for humans inspecting where wall-clock
// time in the simulated kernel went, not for a real sampling profiler.
func (a *Accnt_t) Pprof(name string) *profile.Profile {
	a.Lock()
	u, s := a.Userns, a.Sysns
	a.Unlock()

	valType := []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}}
	userFn := &profile.Function{ID: 1, Name: name + ".user"}
	sysFn := &profile.Function{ID: 2, Name: name + ".sys"}
	userLoc := &profile.Location{ID: 1, Line: []profile.Line{{Function: userFn}}}
	sysLoc := &profile.Location{ID: 2, Line: []profile.Line{{Function: sysFn}}}

	p := &profile.Profile{
		SampleType: valType,
		Function:   []*profile.Function{userFn, sysFn},
		Location:   []*profile.Location{userLoc, sysLoc},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{userLoc}, Value: []int64{u}},
			{Location: []*profile.Location{sysLoc}, Value: []int64{s}},
		},
		TimeNanos: time.Now().UnixNano(),
	}
	return p
}
