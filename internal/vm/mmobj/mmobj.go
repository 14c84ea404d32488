// Package mmobj implements memory objects: the abstract page source
// behind a vmarea. anon is private zero-fill memory; shadow overlays
// another object to implement copy-on-write; file objects are supplied
// by a filesystem's vn_ops.Mmap and merely held here by reference.
// Grounded on the specification's memory-objects section (§4.7) and, for
// the pframe cache it drives, on internal/vm/pframe.
package mmobj

import (
	"sync"

	"weenixcore/internal/defs"
	"weenixcore/internal/vm/pframe"
)

// Mmobj_i is the vtable every memory-object variant implements.
type Mmobj_i interface {
	Ref()
	Put()
	Refcnt() int
	Lookuppage(pagenum int, forwrite bool) (*pframe.Pframe_t, defs.Err_t)
	Fillpage(pf *pframe.Pframe_t) defs.Err_t
	Dirtypage(pf *pframe.Pframe_t) defs.Err_t
	Cleanpage(pf *pframe.Pframe_t) defs.Err_t
}

// base_t holds the bookkeeping common to anon and shadow objects: a
// refcount, the mutex serializing it, and the pframe cache of resident
// pages.
type base_t struct {
	mu      sync.Mutex
	refcnt  int
	Pages   pframe.Cache_t
}

func (b *base_t) Ref() {
	b.mu.Lock()
	b.refcnt++
	b.mu.Unlock()
}

func (b *base_t) Refcnt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refcnt
}

// Anon_t is a private zero-fill memory object, the source for freshly
// mmap'd anonymous memory.
type Anon_t struct {
	base_t
}

// Anon_create allocates an anon object with one reference, matching the
// convention that the caller (vmmap_map) owns the reference it gets back.
func Anon_create() *Anon_t {
	a := &Anon_t{}
	a.refcnt = 1
	a.Pages.Init(a)
	return a
}

// Put releases a reference. Resident pages hold no reference on the
// object, so once the count reaches zero (nothing outside its own cache
// refers to it) every resident page is reclaimed and the object is freed.
func (a *Anon_t) Put() {
	a.mu.Lock()
	a.refcnt--
	freeNow := a.refcnt == 0
	a.mu.Unlock()
	if freeNow {
		a.Pages.Reclaim()
	}
}

func (a *Anon_t) Lookuppage(pagenum int, forwrite bool) (*pframe.Pframe_t, defs.Err_t) {
	return a.Pages.Get(pagenum)
}

func (a *Anon_t) Fillpage(pf *pframe.Pframe_t) defs.Err_t {
	pf.ZeroFill()
	return 0
}

func (a *Anon_t) Dirtypage(pf *pframe.Pframe_t) defs.Err_t {
	return -defs.EPERM
}

func (a *Anon_t) Cleanpage(pf *pframe.Pframe_t) defs.Err_t { return 0 }

// Shadow_t overlays Shadowed (the next layer up in the copy-on-write
// chain) and caches Bottom (the non-shadow object at the chain's root)
// so fault resolution never needs to walk the whole chain to find it.
type Shadow_t struct {
	base_t
	Shadowed Mmobj_i
	Bottom   Mmobj_i
}

// Shadow_create builds a new shadow layered over shadowed, whose chain
// terminates at bottom. One reference apiece is added to shadowed and
// bottom, matching the ownership rule that every shadow holds its own
// reference on both.
func Shadow_create(shadowed, bottom Mmobj_i) *Shadow_t {
	s := &Shadow_t{Shadowed: shadowed, Bottom: bottom}
	s.refcnt = 1
	s.Pages.Init(s)
	shadowed.Ref()
	bottom.Ref()
	return s
}

// Put mirrors Anon_t.Put, but at refcount 0 additionally releases the
// references this shadow holds on Shadowed and Bottom before freeing
// itself.
func (s *Shadow_t) Put() {
	s.mu.Lock()
	s.refcnt--
	freeNow := s.refcnt == 0
	s.mu.Unlock()
	if freeNow {
		s.Pages.Reclaim()
		s.Shadowed.Put()
		s.Bottom.Put()
	}
}

// Lookuppage scans this layer's own resident pages first. A write fault
// always allocates (and subsequently fills, via Fillpage) a new page at
// this layer rather than returning a lower layer's page, which is what
// gives copy-on-write its "write splits off a private copy" behavior. A
// read fault that misses here recurses down Shadowed.
func (s *Shadow_t) Lookuppage(pagenum int, forwrite bool) (*pframe.Pframe_t, defs.Err_t) {
	if pf, ok := s.Pages.Resident(pagenum); ok {
		return pf, 0
	}
	if forwrite {
		return s.Pages.Get(pagenum)
	}
	return s.Shadowed.Lookuppage(pagenum, false)
}

// Fillpage copies the page's content from the nearest lower layer that
// has it (read-only walk down the chain, terminating at Bottom).
func (s *Shadow_t) Fillpage(pf *pframe.Pframe_t) defs.Err_t {
	pf.Pin()
	defer pf.Unpin()
	src, err := s.Shadowed.Lookuppage(pf.Pagenum, false)
	if err != 0 {
		return err
	}
	pf.CopyFrom(src)
	return 0
}

func (s *Shadow_t) Dirtypage(pf *pframe.Pframe_t) defs.Err_t {
	pf.SetDirty(true)
	return 0
}

func (s *Shadow_t) Cleanpage(pf *pframe.Pframe_t) defs.Err_t {
	pf.SetDirty(false)
	return 0
}

// File_t wraps a filesystem-supplied page source; the core only holds a
// reference and forwards to whatever vn_ops.Mmap returned, per §4.7's
// note that file objects are "provided by the fs".
type File_t struct {
	base_t
	Backing Mmobj_i
}

func File_wrap(backing Mmobj_i) *File_t {
	f := &File_t{Backing: backing}
	f.refcnt = 1
	return f
}

func (f *File_t) Put() {
	f.mu.Lock()
	f.refcnt--
	done := f.refcnt == 0
	f.mu.Unlock()
	if done {
		f.Backing.Put()
	}
}

func (f *File_t) Lookuppage(pagenum int, forwrite bool) (*pframe.Pframe_t, defs.Err_t) {
	return f.Backing.Lookuppage(pagenum, forwrite)
}
func (f *File_t) Fillpage(pf *pframe.Pframe_t) defs.Err_t   { return f.Backing.Fillpage(pf) }
func (f *File_t) Dirtypage(pf *pframe.Pframe_t) defs.Err_t  { return f.Backing.Dirtypage(pf) }
func (f *File_t) Cleanpage(pf *pframe.Pframe_t) defs.Err_t { return f.Backing.Cleanpage(pf) }
