// Package vmmap implements a process's address-space map: a sorted,
// non-overlapping list of vmareas, each bound to a memory object at a
// given offset. Grounded on the specification's §4.6 vmmap primitives.
package vmmap

import (
	"sort"

	"weenixcore/internal/defs"
	"weenixcore/internal/vm/mmobj"
)

// Dir_t selects a search direction for Find_range.
type Dir_t int

const (
	LoHi Dir_t = iota
	HiLo
)

// Vmarea_t is a contiguous mapping of virtual pages to an mmobj.
type Vmarea_t struct {
	Start, End int // page numbers, [Start, End)
	Prot       int
	Flags      int
	Off        int // page offset into the object
	Obj        mmobj.Mmobj_i
}

func (v *Vmarea_t) Pglen() int     { return v.End - v.Start }
func (v *Vmarea_t) FileOffset() int { return v.Off * defs.PAGE_SIZE }

// Vmmap_t is a process's address space: vmareas kept sorted ascending by
// Start, per the specification's invariant that iteration order is
// observable and must be preserved.
type Vmmap_t struct {
	areas []*Vmarea_t
}

// Create returns a freshly allocated, empty vmmap.
func Create() *Vmmap_t { return &Vmmap_t{} }

// Destroy frees every vmarea, putting one reference on each one's mmobj.
func (m *Vmmap_t) Destroy() {
	for _, a := range m.areas {
		a.Obj.Put()
	}
	m.areas = nil
}

// Insert adds vma to the map in ascending-start order. It asserts the
// invariants named in the specification: start < end, the range lies
// inside user memory, and the vma isn't already in some map.
func (m *Vmmap_t) Insert(vma *Vmarea_t) {
	if vma.Start >= vma.End {
		panic("vmmap: start >= end")
	}
	if vma.Start < defs.USER_MEM_LOW_PAGE || vma.End > defs.USER_MEM_HIGH_PAGE {
		panic("vmmap: range outside user memory")
	}
	i := sort.Search(len(m.areas), func(i int) bool { return m.areas[i].Start >= vma.Start })
	m.areas = append(m.areas, nil)
	copy(m.areas[i+1:], m.areas[i:])
	m.areas[i] = vma
}

// Find_range performs a first-fit search for npages contiguous free
// pages, scanning the gaps between vmareas and the user-memory
// boundaries. dir=LoHi returns the lowest fitting gap's start page;
// dir=HiLo returns the highest. Returns -1 if no gap is large enough.
func (m *Vmmap_t) Find_range(npages int, dir Dir_t) int {
	type gap struct{ lo, hi int }
	var gaps []gap
	prev := defs.USER_MEM_LOW_PAGE
	for _, a := range m.areas {
		if a.Start > prev {
			gaps = append(gaps, gap{prev, a.Start})
		}
		if a.End > prev {
			prev = a.End
		}
	}
	if defs.USER_MEM_HIGH_PAGE > prev {
		gaps = append(gaps, gap{prev, defs.USER_MEM_HIGH_PAGE})
	}

	if dir == HiLo {
		for i := len(gaps) - 1; i >= 0; i-- {
			if gaps[i].hi-gaps[i].lo >= npages {
				return gaps[i].hi - npages
			}
		}
		return -1
	}
	for _, g := range gaps {
		if g.hi-g.lo >= npages {
			return g.lo
		}
	}
	return -1
}

// Lookup returns the vmarea covering page vfn, or nil.
func (m *Vmmap_t) Lookup(vfn int) *Vmarea_t {
	for _, a := range m.areas {
		if vfn >= a.Start && vfn < a.End {
			return a
		}
	}
	return nil
}

// Is_range_empty reports whether no vmarea overlaps [lo, lo+npages).
func (m *Vmmap_t) Is_range_empty(lo, npages int) bool {
	hi := lo + npages
	for _, a := range m.areas {
		if a.Start < hi && lo < a.End {
			return false
		}
	}
	return true
}

// Clone creates a new vmmap with one vmarea per source vmarea, copying
// start/end/prot/flags/offset; object pointers are deliberately left nil,
// to be filled in by fork's shadow/share logic (§4.9).
func (m *Vmmap_t) Clone() *Vmmap_t {
	n := &Vmmap_t{areas: make([]*Vmarea_t, len(m.areas))}
	for i, a := range m.areas {
		n.areas[i] = &Vmarea_t{Start: a.Start, End: a.End, Prot: a.Prot, Flags: a.Flags, Off: a.Off}
	}
	return n
}

// Areas returns the vmareas in ascending-start order, for fork to pair up
// parent and child vmareas index-by-index.
func (m *Vmmap_t) Areas() []*Vmarea_t { return m.areas }

// Map builds and inserts a fresh vmarea. If lopage==0 a range is chosen
// via Find_range; otherwise the caller-specified range must fall inside
// user memory and any overlapping vmarea is first removed. obj is the
// already-resolved source object (a fresh anon for an anonymous mapping,
// or whatever the filesystem's vn_ops.Mmap returned for a file mapping);
// Map itself only handles the MAP_PRIVATE shadow-wrapping step.
func (m *Vmmap_t) Map(obj mmobj.Mmobj_i, lopage, npages, prot, flags, off int, dir Dir_t) (*Vmarea_t, defs.Err_t) {
	start := lopage
	if start == 0 {
		start = m.Find_range(npages, dir)
		if start < 0 {
			return nil, -defs.ENOMEM
		}
	} else {
		if start < defs.USER_MEM_LOW_PAGE || start+npages > defs.USER_MEM_HIGH_PAGE {
			return nil, -defs.EINVAL
		}
		m.Remove(start, npages)
	}

	srcObj := obj
	if flags&defs.MAP_PRIVATE != 0 {
		bottom := srcObj
		if sh, ok := srcObj.(*mmobj.Shadow_t); ok {
			bottom = sh.Bottom
		}
		srcObj = mmobj.Shadow_create(obj, bottom)
		// Shadow_create takes its own fresh references on obj (as
		// shadowed) and bottom; the reference Map itself was handed in
		// obj is now superseded by the shadow and must be released, or
		// it leaks for the lifetime of every MAP_PRIVATE mapping.
		obj.Put()
	}

	vma := &Vmarea_t{Start: start, End: start + npages, Prot: prot, Flags: flags, Off: off, Obj: srcObj}
	m.Insert(vma)
	return vma, 0
}

// Remove unmaps [lo, lo+npages), splitting, shrinking or fully removing
// overlapping vmareas as needed. A split takes a fresh reference on the
// (shared) mmobj for the new fragment; a shrunk vmarea keeps its existing
// reference; a fully removed vmarea puts its one reference.
func (m *Vmmap_t) Remove(lo, npages int) {
	hi := lo + npages
	var kept []*Vmarea_t
	for _, a := range m.areas {
		switch {
		case a.End <= lo || a.Start >= hi:
			// No overlap.
			kept = append(kept, a)
		case lo <= a.Start && hi >= a.End:
			// Fully covered: drop it.
			a.Obj.Put()
		case lo > a.Start && hi < a.End:
			// Unmapped range is strictly inside: split into two.
			right := &Vmarea_t{Start: hi, End: a.End, Prot: a.Prot, Flags: a.Flags,
				Off: a.Off + (hi - a.Start), Obj: a.Obj}
			a.Obj.Ref()
			a.End = lo
			kept = append(kept, a, right)
		case lo <= a.Start:
			// Overlaps the beginning: shrink from the left.
			a.Off += hi - a.Start
			a.Start = hi
			kept = append(kept, a)
		default:
			// Overlaps the end: shrink from the right.
			a.End = lo
			kept = append(kept, a)
		}
	}
	m.areas = kept
}

// Read copies count bytes starting at virtual address vaddr into buf, via
// each overlapping vmarea's object. Returns -EFAULT on any page lookup
// failure.
func (m *Vmmap_t) Read(vaddr int, buf []uint8, count int) defs.Err_t {
	return m.txn(vaddr, buf[:count], false)
}

// Write copies count bytes from buf to the address space starting at
// vaddr, dirtying each page it touches.
func (m *Vmmap_t) Write(vaddr int, buf []uint8, count int) defs.Err_t {
	return m.txn(vaddr, buf[:count], true)
}

func (m *Vmmap_t) txn(vaddr int, buf []uint8, write bool) defs.Err_t {
	off := 0
	for off < len(buf) {
		vfn := (vaddr + off) / defs.PAGE_SIZE
		vma := m.Lookup(vfn)
		if vma == nil {
			return -defs.EFAULT
		}
		pagenum := vfn - vma.Start + vma.Off
		pf, err := vma.Obj.Lookuppage(pagenum, write)
		if err != 0 {
			return -defs.EFAULT
		}
		pageoff := (vaddr + off) % defs.PAGE_SIZE
		pg := pf.Bytes()
		var n int
		if write {
			n = copy(pg[pageoff:], buf[off:])
			vma.Obj.Dirtypage(pf)
		} else {
			n = copy(buf[off:], pg[pageoff:])
		}
		off += n
	}
	return 0
}
