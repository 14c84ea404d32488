// Package limits tracks system-wide resource counters consumed and given
// back by the process, vfs and vm subsystems.
package limits

import "sync/atomic"

// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

func (s *Sysatomic_t) ptr() *int64 { return (*int64)(s) }

// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(s.ptr(), int64(n))
}

// Taken tries to decrement the limit by the provided amount. It returns
// true on success, leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(n uint) bool {
	g := atomic.AddInt64(s.ptr(), -int64(n))
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s.ptr(), int64(n))
	return false
}

// Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool { return s.Taken(1) }

// Give increments the limit by one.
func (s *Sysatomic_t) Give() { s.Given(1) }

// Value returns the current value.
func (s *Sysatomic_t) Value() int64 { return atomic.LoadInt64(s.ptr()) }

// Syslimit_t tracks system-wide resource limits relevant to this core:
// process count, vnode count, cached memory-filesystem pages, and bdev-like
// block pages used for file-backed mmobjs.
type Syslimit_t struct {
	Sysprocs Sysatomic_t
	Vnodes   Sysatomic_t
	Mfspgs   Sysatomic_t
	Blocks   Sysatomic_t
}

// Syslimit holds the configured system-wide limits.
var Syslimit = MkSysLimit()

// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	s := &Syslimit_t{}
	s.Sysprocs.Given(1e4)
	s.Vnodes.Given(20000)
	s.Mfspgs.Given(1e5)
	s.Blocks.Given(100000)
	return s
}
