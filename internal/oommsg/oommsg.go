// Package oommsg carries the out-of-memory notification channel signalled
// by internal/mem when the simulated physical allocator is exhausted.
package oommsg

// OomCh is notified when the system runs out of memory. A receiver replies
// on Resume once it has freed enough memory for the allocation of Need
// bytes to retry, or false if it gave up. Outside this package's own test,
// nothing in this module receives on it.
var OomCh chan Oommsg_t = make(chan Oommsg_t)

// Oommsg_t is sent on OomCh when memory is exhausted.
type Oommsg_t struct {
	Need   int
	Resume chan bool
}
