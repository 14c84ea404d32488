// Package mem is the simulated physical page allocator. It plays the role
// the teacher's mem package plays on top of a direct-mapped physical
// address space and a modified runtime exposing per-CPU free lists
// (runtime.CPUHint, runtime.Get_phys); neither exists on an ordinary Go
// runtime, so this core backs "physical" pages with an ordinary Go slice
// and refcounts them with ordinary atomics, sacrificing the per-CPU free
// list fast path for portability.
package mem

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"weenixcore/internal/oommsg"
)

// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

// PGSIZE is the size, in bytes, of a single simulated page.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks the in-page offset bits of an address.
const PGOFFSET Pa_t = 0xfff

// PGMASK masks the page-number bits of an address.
const PGMASK Pa_t = ^PGOFFSET

// Pa_t is a simulated physical address: an opaque handle, not a real
// machine address, since this core never programs a real MMU.
type Pa_t uintptr

// Pg_t is the content of one simulated physical page.
type Pg_t [PGSIZE / 8]uint64

// Bytepg_t views a page as a byte array.
type Bytepg_t [PGSIZE]uint8

// Pg2bytes reinterprets a Pg_t as a Bytepg_t.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

// Page_i abstracts physical page allocation, letting vm/pframe and the
// page-fault handler depend on an interface rather than the concrete
// global allocator (useful for tests that want a small, deterministic
// pool).
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Refup(Pa_t)
	Refdown(Pa_t) bool
	Deref(Pa_t) *Pg_t
}

type physpg_t struct {
	refcnt int32
	nexti  uint32
	pg     Pg_t
}

// Physmem_t is the simulated physical memory allocator: a fixed-size pool
// of pages tracked by a singly linked free list and per-page refcounts.
type Physmem_t struct {
	mu      sync.Mutex
	pgs     []physpg_t
	freei   uint32
	freelen int32
}

const nilnext = ^uint32(0)

// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

// Phys_init reserves npages simulated pages and initializes the free
// list. The teacher reserves a fraction of real RAM discovered from the
// boot loader; here npages is whatever the caller (cmd/kernel, or a test)
// decides to simulate.
func Phys_init(npages int) *Physmem_t {
	phys := Physmem
	phys.pgs = make([]physpg_t, npages)
	phys.freei = 0
	phys.freelen = int32(npages)
	for i := range phys.pgs {
		phys.pgs[i].refcnt = 0
		if i == npages-1 {
			phys.pgs[i].nexti = nilnext
		} else {
			phys.pgs[i].nexti = uint32(i + 1)
		}
	}
	return phys
}

// Refcnt returns the current reference count of the page at p_pg.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	return int(atomic.LoadInt32(&phys.pgs[idx(p_pg)].refcnt))
}

// Refup increments the reference count of the page at p_pg.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	c := atomic.AddInt32(&phys.pgs[idx(p_pg)].refcnt, 1)
	if c <= 0 {
		panic("wut")
	}
}

// Refdown decrements the reference count of the page at p_pg, returning
// true when the count reaches zero and the page is returned to the free
// list.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	i := idx(p_pg)
	c := atomic.AddInt32(&phys.pgs[i].refcnt, -1)
	if c < 0 {
		panic("wut")
	}
	if c != 0 {
		return false
	}
	phys.mu.Lock()
	phys.pgs[i].nexti = phys.freei
	phys.freei = i
	phys.freelen++
	phys.mu.Unlock()
	return true
}

// Deref returns the page content at p_pg without changing its refcount.
func (phys *Physmem_t) Deref(p_pg Pa_t) *Pg_t {
	return &phys.pgs[idx(p_pg)].pg
}

func idx(p_pg Pa_t) uint32 { return uint32(p_pg >> PGSHIFT) }

// Refpg_new allocates a zero-filled page. Its refcount starts at zero;
// the caller must Refup it once installed somewhere durable (a page
// table, an mmobj's resident-page table), matching the teacher's
// convention that a freshly allocated page is not self-referencing.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys.refpg_new()
	if !ok {
		return nil, 0, false
	}
	*pg = Pg_t{}
	return pg, p_pg, true
}

// Refpg_new_nozero allocates a page without zeroing it, for callers about
// to overwrite its entire contents (e.g. a disk read).
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	return phys.refpg_new()
}

func (phys *Physmem_t) refpg_new() (*Pg_t, Pa_t, bool) {
	for {
		phys.mu.Lock()
		if phys.freei == nilnext {
			phys.mu.Unlock()
			if !phys.oom(PGSIZE) {
				return nil, 0, false
			}
			continue
		}
		i := phys.freei
		phys.freei = phys.pgs[i].nexti
		phys.freelen--
		phys.pgs[i].refcnt = 0
		phys.mu.Unlock()
		return &phys.pgs[i].pg, Pa_t(i) << PGSHIFT, true
	}
}

// oom asks whoever is listening on oommsg.OomCh to free need bytes,
// blocking until it replies. It returns false if nothing is listening or
// the listener gives up.
func (phys *Physmem_t) oom(need int) bool {
	resume := make(chan bool)
	select {
	case oommsg.OomCh <- oommsg.Oommsg_t{Need: need, Resume: resume}:
		return <-resume
	default:
		return false
	}
}

// Pgcount reports the number of free pages remaining in the pool.
func (phys *Physmem_t) Pgcount() int {
	phys.mu.Lock()
	defer phys.mu.Unlock()
	return int(phys.freelen)
}
