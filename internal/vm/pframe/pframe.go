// Package pframe implements the page-frame cache: the (mmobj, pagenum)
// indexed table of physical pages backing every memory object's resident
// data. Grounded on the specification's pframe section (§6, "Pageframe
// cache") and the busy/pinned/dirty flag discipline described in §5's
// shared-resource policy.
package pframe

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"weenixcore/internal/defs"
	"weenixcore/internal/mem"
	"weenixcore/internal/sched"
	"weenixcore/internal/waitq"
)

// Filler_i is the subset of mmobj.Mmobj_i the cache needs to fill a page
// it doesn't yet have resident. Declared locally (rather than importing
// mmobj) so mmobj can depend on pframe without a cycle.
type Filler_i interface {
	Fillpage(pf *Pframe_t) defs.Err_t
}

// Pframe_t is one cached physical page belonging to a memory object at a
// given page number.
type Pframe_t struct {
	Pagenum int
	pg      *mem.Pg_t
	pa      mem.Pa_t

	mu     sync.Mutex
	busy   bool
	pinned int
	dirty  bool
	wait   waitq.Waitq_t
}

// ZeroFill fills the page with zeros; used by anon's Fillpage.
func (pf *Pframe_t) ZeroFill() { *pf.pg = mem.Pg_t{} }

// CopyFrom copies src's content into pf; used by shadow's Fillpage.
func (pf *Pframe_t) CopyFrom(src *Pframe_t) { *pf.pg = *src.pg }

// Bytes exposes the page's content as a byte slice for vmmap_read/write.
func (pf *Pframe_t) Bytes() []uint8 { return mem.Pg2bytes(pf.pg)[:] }

// PA returns the physical address backing this page, for installing a
// page-table translation at fault-resolution time.
func (pf *Pframe_t) PA() mem.Pa_t { return pf.pa }

// Pin marks the page as not evictable; Unpin must balance every Pin.
func (pf *Pframe_t) Pin() {
	pf.mu.Lock()
	pf.pinned++
	pf.mu.Unlock()
}

func (pf *Pframe_t) Unpin() {
	pf.mu.Lock()
	if pf.pinned == 0 {
		pf.mu.Unlock()
		panic("pframe: unpin of unpinned page")
	}
	pf.pinned--
	pf.mu.Unlock()
}

func (pf *Pframe_t) Pinned() bool {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.pinned > 0
}

func (pf *Pframe_t) SetDirty(d bool) {
	pf.mu.Lock()
	pf.dirty = d
	pf.mu.Unlock()
}

func (pf *Pframe_t) Dirty() bool {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.dirty
}

// waitBusy blocks the caller until the page is no longer busy, sleeping
// on the page's own wait queue (pframe_is_busy -> sched_sleep_on(pf.wait)
// in the specification's terms). The caller must hold sched.Big.
func (pf *Pframe_t) waitBusy() {
	for pf.busy {
		sched.Sleep_on(&pf.wait)
	}
}

// fillSem bounds how many page-ins run concurrently across the whole
// kernel (at most 8; a shadow's Fillpage fills lower layers while it
// holds its own slot) so that an unbounded fault storm can't allocate unbounded pages at
// once.
var fillSem = semaphore.NewWeighted(8)

// Cache_t is a memory object's resident-page table.
type Cache_t struct {
	mu     sync.Mutex
	pages  map[int]*Pframe_t
	owner  Filler_i
}

// Init must be called once before first use, with the object that owns
// this cache (for Fillpage callbacks on a miss).
func (c *Cache_t) Init(owner Filler_i) {
	c.pages = make(map[int]*Pframe_t)
	c.owner = owner
}

// Len reports the number of resident pages.
func (c *Cache_t) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

// Resident returns the already-resident page at pagenum, if any, without
// triggering a fill.
func (c *Cache_t) Resident(pagenum int) (*Pframe_t, bool) {
	c.mu.Lock()
	pf, ok := c.pages[pagenum]
	c.mu.Unlock()
	return pf, ok
}

// Get returns the resident page at pagenum, allocating and filling it via
// the cache's owner.Fillpage on a miss.
func (c *Cache_t) Get(pagenum int) (*Pframe_t, defs.Err_t) {
	c.mu.Lock()
	if pf, ok := c.pages[pagenum]; ok {
		c.mu.Unlock()
		pf.waitBusy()
		return pf, 0
	}
	pg, pa, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		c.mu.Unlock()
		return nil, -defs.ENOMEM
	}
	// A freshly allocated page starts at refcount zero; the cache's own
	// resident-page entry is its first durable owner.
	mem.Physmem.Refup(pa)
	pf := &Pframe_t{Pagenum: pagenum, pg: pg, pa: pa, busy: true}
	c.pages[pagenum] = pf
	c.mu.Unlock()

	if err := fillSem.Acquire(context.Background(), 1); err != nil {
		panic(err)
	}
	err := c.owner.Fillpage(pf)
	fillSem.Release(1)

	pf.mu.Lock()
	pf.busy = false
	pf.mu.Unlock()
	sched.Wakeup_all(&pf.wait)

	if err != 0 {
		c.mu.Lock()
		delete(c.pages, pagenum)
		c.mu.Unlock()
		mem.Physmem.Refdown(pa)
		return nil, err
	}
	return pf, 0
}

// Reclaim frees every resident page: it waits out busy, panics if the
// page is still pinned (a caller with live references should never reach
// this point), and frees the backing physical page. Dirty pages are not
// cleaned first. Called once an object's Put has dropped its refcount to
// zero.
func (c *Cache_t) Reclaim() {
	c.mu.Lock()
	pages := c.pages
	c.pages = make(map[int]*Pframe_t)
	c.mu.Unlock()

	for _, pf := range pages {
		pf.waitBusy()
		if pf.Pinned() {
			panic("pframe: reclaiming a pinned page")
		}
		// A dirty anon/shadow page has no durable sink to flush to; a
		// dirty file-backed page would be cleaned through vn_ops here,
		// but file pages are owned by the filesystem's own cache, not
		// this one (see mmobj.File_t).
		mem.Physmem.Refdown(pf.pa)
	}
}
